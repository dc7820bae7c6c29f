package codes

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed codes.toml
	defaultTables []byte

	//go:embed schema.json
	tablesSchema []byte

	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// Layout describes the segment widths of a project code.
type Layout struct {
	ProductWidth int    `toml:"product_width" json:"product_width"`
	SourceWidth  int    `toml:"source_width" json:"source_width"`
	TypeWidth    int    `toml:"type_width" json:"type_width"`
	Separator    string `toml:"separator" json:"separator"`
}

// Width is the length of a compact code.
func (l Layout) Width() int {
	return l.ProductWidth + l.SourceWidth + l.TypeWidth
}

// Tables is the static classification consulted by the Decoder.
type Tables struct {
	Version      string            `toml:"version" json:"version"`
	Layout       Layout            `toml:"layout" json:"layout"`
	UnknownLabel string            `toml:"unknown_label" json:"unknown_label"`
	InvalidLabel string            `toml:"invalid_label" json:"invalid_label"`
	Products     map[string]string `toml:"products" json:"products"`
	Sources      map[string]string `toml:"sources" json:"sources"`
	Types        map[string]string `toml:"types" json:"types"`
}

// HasSourceLabel reports whether some source segment decodes to label.
func (t *Tables) HasSourceLabel(label string) bool {
	return hasLabel(t.Sources, label)
}

// HasTypeLabel reports whether some type segment decodes to label.
func (t *Tables) HasTypeLabel(label string) bool {
	return hasLabel(t.Types, label)
}

func hasLabel(table map[string]string, label string) bool {
	for _, v := range table {
		if v == label {
			return true
		}
	}
	return false
}

// Default returns the tables compiled into the binary.
func Default() (*Tables, error) {
	return Parse(defaultTables)
}

// Load reads tables from path, or the built-in tables when path is empty.
func Load(path string) (*Tables, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classification file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes TOML tables and validates them.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if _, err := toml.Decode(string(data), &t); err != nil {
		return nil, fmt.Errorf("decode classification tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the tables against the embedded JSON schema and then
// checks that every table key has the width its segment declares.
// All problems are reported at once.
func (t *Tables) Validate() error {
	schema, err := schema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal classification tables: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("unmarshal classification tables: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("classification tables do not match schema: %w", err)
	}

	var errs []string
	errs = append(errs, keyWidthErrors("products", t.Products, t.Layout.ProductWidth)...)
	errs = append(errs, keyWidthErrors("sources", t.Sources, t.Layout.SourceWidth)...)
	errs = append(errs, keyWidthErrors("types", t.Types, t.Layout.TypeWidth)...)
	if len(errs) > 0 {
		return fmt.Errorf("classification tables validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func keyWidthErrors(name string, table map[string]string, width int) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, k := range keys {
		if len(k) != width {
			errs = append(errs, fmt.Sprintf("%s key %q has width %d, layout expects %d", name, k, len(k), width))
		}
	}
	return errs
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tables.schema.json", bytes.NewReader(tablesSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("tables.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}
