// Package export renders drill-downs as XLSX workbooks.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"engdash/internal/core"
	"engdash/internal/log"
	"engdash/internal/report"
)

// Dimension names what a drill-down is selected by.
type Dimension string

const (
	DimensionProduct Dimension = "product"
	DimensionPerson  Dimension = "person"
	DimensionProject Dimension = "project"
)

var ErrUnknownDimension = errors.New("unknown dimension")

// ParseDimension accepts product, person or project in any case.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case DimensionProduct, DimensionPerson, DimensionProject:
		return d, nil
	}
	return "", fmt.Errorf("%w %q: want product, person or project", ErrUnknownDimension, s)
}

// DrillDowns is the subset of the dashboard service the exporter reads.
type DrillDowns interface {
	ProductDrillDown(ctx context.Context, product string) (report.ProductDrillDown, error)
	PersonDrillDown(ctx context.Context, person string) (report.PersonDrillDown, error)
	ProjectDrillDown(ctx context.Context, project string) (report.ProjectDrillDown, error)
}

const (
	rowsSheet    = "Rows"
	summarySheet = "Summary"
)

var rowHeaders = []string{"Person", "Project", "Project Code", "Task", "Hours"}

type Service struct {
	drills DrillDowns
	logger *slog.Logger
}

func NewService(drills DrillDowns, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{drills: drills, logger: logger}
}

// Export builds the workbook for one drill-down selection.
func (s *Service) Export(ctx context.Context, dim Dimension, name string) ([]byte, error) {
	start := time.Now()

	var (
		book *workbook
		err  error
	)
	switch dim {
	case DimensionProduct:
		var d report.ProductDrillDown
		if d, err = s.drills.ProductDrillDown(ctx, name); err == nil {
			book, err = productWorkbook(d)
		}
	case DimensionPerson:
		var d report.PersonDrillDown
		if d, err = s.drills.PersonDrillDown(ctx, name); err == nil {
			book, err = personWorkbook(d)
		}
	case DimensionProject:
		var d report.ProjectDrillDown
		if d, err = s.drills.ProjectDrillDown(ctx, name); err == nil {
			book, err = projectWorkbook(d)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDimension, dim)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s %q: %w", dim, name, err)
	}

	buf, err := book.bytes()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "XLSX export completed",
		log.FieldComponent, log.ComponentExport,
		log.FieldView, string(dim),
		"name", name,
		log.FieldRows, book.rows,
		"bytes", len(buf),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf, nil
}

// Filename suggests a download name for a selection.
func Filename(dim Dimension, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "all"
	}
	return fmt.Sprintf("%s-%s.xlsx", dim, clean)
}

type workbook struct {
	f    *excelize.File
	rows int
}

// productWorkbook lays out a product drill-down: the rows plus per-code and
// per-project totals.
func productWorkbook(d report.ProductDrillDown) (*workbook, error) {
	w, err := newWorkbook(d.Rows)
	if err != nil {
		return nil, err
	}
	next := w.summaryHeader("Product", d.Product, d.Total)
	next = w.summaryTable(next, "Hours by code", d.ByCode)
	w.summaryTable(next, "Hours by project", d.ByProject)
	return w, nil
}

func personWorkbook(d report.PersonDrillDown) (*workbook, error) {
	w, err := newWorkbook(d.Rows)
	if err != nil {
		return nil, err
	}
	next := w.summaryHeader("Person", d.Person, d.Total)
	w.summaryTable(next, "Hours by project", d.ByProject)
	return w, nil
}

func projectWorkbook(d report.ProjectDrillDown) (*workbook, error) {
	w, err := newWorkbook(d.Rows)
	if err != nil {
		return nil, err
	}
	next := w.summaryHeader("Project", d.Project, d.Total)
	w.summaryTable(next, "Hours by task", d.ByTask)
	return w, nil
}

func newWorkbook(rows []core.EntryRow) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(rowsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	idx, _ := f.GetSheetIndex(summarySheet)
	f.SetActiveSheet(idx)

	w := &workbook{f: f, rows: len(rows)}
	for i, h := range rowHeaders {
		w.set(rowsSheet, i+1, 1, h)
	}
	for i, r := range rows {
		line := i + 2
		w.set(rowsSheet, 1, line, r.PersonName)
		w.set(rowsSheet, 2, line, r.ProjectName)
		w.set(rowsSheet, 3, line, r.ProjectCode)
		w.set(rowsSheet, 4, line, r.TaskName)
		w.set(rowsSheet, 5, line, r.Duration.InexactFloat64())
	}

	_ = f.SetColWidth(rowsSheet, "A", "B", 24)
	_ = f.SetColWidth(rowsSheet, "C", "C", 16)
	_ = f.SetColWidth(rowsSheet, "D", "D", 32)
	_ = f.SetColWidth(rowsSheet, "E", "E", 10)
	_ = f.SetColWidth(summarySheet, "A", "A", 28)
	_ = f.SetColWidth(summarySheet, "B", "B", 12)
	return w, nil
}

// summaryHeader writes the selection and its total, returning the next free line.
func (w *workbook) summaryHeader(label, value string, total core.Hours) int {
	w.set(summarySheet, 1, 1, label)
	w.set(summarySheet, 2, 1, value)
	w.set(summarySheet, 1, 2, "Total hours")
	w.set(summarySheet, 2, 2, total.InexactFloat64())
	return 4
}

func (w *workbook) summaryTable(line int, title string, buckets []core.Bucket) int {
	w.set(summarySheet, 1, line, title)
	line++
	for _, b := range buckets {
		w.set(summarySheet, 1, line, b.Key)
		w.set(summarySheet, 2, line, b.Hours.InexactFloat64())
		line++
	}
	return line + 1
}

func (w *workbook) set(sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = w.f.SetCellValue(sheet, cell, v)
}

func (w *workbook) bytes() ([]byte, error) {
	defer w.f.Close()
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
