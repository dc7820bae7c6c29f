package http

import (
	"html/template"

	"github.com/shopspring/decimal"

	"engdash/internal/core"
	"engdash/internal/report"
	"engdash/internal/services"
)

var templateFuncs = template.FuncMap{
	"hours": core.FormatHours,
}

// barRow is one line of a horizontal bar chart rendered in plain HTML.
type barRow struct {
	Key   string
	Hours string
	Width int
}

// barRows scales bucket widths to the largest bucket, rounding to whole
// percents and keeping tiny non-zero values visible.
func barRows(buckets []core.Bucket) []barRow {
	top := decimal.Zero
	for _, b := range buckets {
		if b.Hours.GreaterThan(top) {
			top = b.Hours
		}
	}

	hundred := decimal.NewFromInt(100)
	rows := make([]barRow, 0, len(buckets))
	for _, b := range buckets {
		width := 0
		if top.IsPositive() && b.Hours.IsPositive() {
			width = int(b.Hours.Mul(hundred).Div(top).Round(0).IntPart())
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		rows = append(rows, barRow{Key: b.Key, Hours: core.FormatHours(b.Hours), Width: width})
	}
	return rows
}

type drillView struct {
	Title     string
	Dimension string
	Name      string
	Total     string
	Rows      []core.EntryRow
	Tables    []drillTable
}

type drillTable struct {
	Title string
	Bars  []barRow
}

type pageData struct {
	Threshold     string
	OtherLabel    string
	TotalHours    string
	Entries       int
	TablesVersion string
	Error         string

	Projects []barRow
	Sources  []barRow
	Types    []barRow
	Options  services.FilterOptions

	SelectedProduct string
	SelectedPerson  string
	SelectedProject string

	Drills []drillView
}

func newPageData(o services.Overview) pageData {
	return pageData{
		Threshold:     core.FormatHours(o.Threshold),
		OtherLabel:    o.OtherLabel,
		TotalHours:    core.FormatHours(o.TotalHours),
		Entries:       o.Entries,
		TablesVersion: o.TablesVersion,
		Projects:      barRows(o.Projects),
		Sources:       barRows(o.Sources),
		Types:         barRows(o.Types),
		Options:       o.Options,
	}
}

func productView(d report.ProductDrillDown) drillView {
	return drillView{
		Title:     "Product",
		Dimension: "product",
		Name:      d.Product,
		Total:     core.FormatHours(d.Total),
		Rows:      d.Rows,
		Tables: []drillTable{
			{Title: "Hours by code", Bars: barRows(d.ByCode)},
			{Title: "Hours by project", Bars: barRows(d.ByProject)},
		},
	}
}

func personView(d report.PersonDrillDown) drillView {
	return drillView{
		Title:     "Person",
		Dimension: "person",
		Name:      d.Person,
		Total:     core.FormatHours(d.Total),
		Rows:      d.Rows,
		Tables:    []drillTable{{Title: "Hours by project", Bars: barRows(d.ByProject)}},
	}
}

func projectView(d report.ProjectDrillDown) drillView {
	return drillView{
		Title:     "Project",
		Dimension: "project",
		Name:      d.Project,
		Total:     core.FormatHours(d.Total),
		Rows:      d.Rows,
		Tables:    []drillTable{{Title: "Hours by task", Bars: barRows(d.ByTask)}},
	}
}
