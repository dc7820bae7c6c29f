// Package codes decodes project codes into their source, type and product
// classification using versioned static tables.
package codes

import (
	"strings"

	"engdash/internal/cache"
	"engdash/internal/core"
)

const memoSize = 4096

// Decoder maps project codes to classifications. It never fails: wrong-shape
// codes decode to the invalid label and unmapped segments to the unknown
// label. Safe for concurrent use.
type Decoder struct {
	tables *Tables
	memo   *cache.LRUCache[core.DecodedCode]
}

// NewDecoder creates a decoder over t. Results are memoised per input string.
func NewDecoder(t *Tables) *Decoder {
	return &Decoder{
		tables: t,
		memo:   cache.NewLRUCache[core.DecodedCode](memoSize, 0),
	}
}

// Decode classifies code.
func (d *Decoder) Decode(code string) core.DecodedCode {
	if dc, ok := d.memo.Get(code); ok {
		return dc
	}
	dc := d.decode(code)
	d.memo.Set(code, dc)
	return dc
}

// Product returns only the product label of code.
func (d *Decoder) Product(code string) string {
	return d.Decode(code).Product
}

// Version is the version string of the loaded tables.
func (d *Decoder) Version() string {
	return d.tables.Version
}

// Tables exposes the loaded classification.
func (d *Decoder) Tables() *Tables {
	return d.tables
}

func (d *Decoder) decode(code string) core.DecodedCode {
	product, source, typ, ok := split(d.tables.Layout, code)
	if !ok {
		return core.DecodedCode{
			Valid:   false,
			Source:  d.tables.InvalidLabel,
			Type:    d.tables.InvalidLabel,
			Product: d.tables.InvalidLabel,
		}
	}
	return core.DecodedCode{
		Valid:   true,
		Source:  d.lookup(d.tables.Sources, source),
		Type:    d.lookup(d.tables.Types, typ),
		Product: d.lookup(d.tables.Products, product),
	}
}

func (d *Decoder) lookup(table map[string]string, segment string) string {
	if label, ok := table[segment]; ok {
		return label
	}
	return d.tables.UnknownLabel
}

// split cuts a trimmed code into its product, source and type segments.
// Accepted shapes are the compact all-digit form and the separated form.
func split(l Layout, code string) (product, source, typ string, ok bool) {
	code = strings.TrimSpace(code)

	if len(code) == l.Width() && allDigits(code) {
		p, s := l.ProductWidth, l.ProductWidth+l.SourceWidth
		return code[:p], code[p:s], code[s:], true
	}

	if l.Separator == "" {
		return "", "", "", false
	}
	parts := strings.Split(code, l.Separator)
	if len(parts) != 3 {
		return "", "", "", false
	}
	widths := [3]int{l.ProductWidth, l.SourceWidth, l.TypeWidth}
	for i, part := range parts {
		if len(part) != widths[i] || !allDigits(part) {
			return "", "", "", false
		}
	}
	return parts[0], parts[1], parts[2], true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
