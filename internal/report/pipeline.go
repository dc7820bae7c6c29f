// Package report turns a snapshot of time entries into the aggregate tables
// and drill-downs the dashboard presents.
//
// Every function is a pure transform: the input slice is never modified and
// the same input always yields the same output. Empty input and selections
// that match nothing give empty results, never errors. Buckets are ordered
// by hours descending with ties broken by key.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"engdash/internal/core"
)

// Decoder classifies project codes.
type Decoder interface {
	Decode(code string) core.DecodedCode
}

// Pipeline computes aggregates under an overhead policy.
type Pipeline struct {
	decoder Decoder
	policy  Policy
}

// NewPipeline creates a pipeline.
func NewPipeline(decoder Decoder, policy Policy) *Pipeline {
	return &Pipeline{decoder: decoder, policy: policy}
}

// Policy returns the overhead policy in use.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

type (
	// ProductDrillDown is the detail of one product label.
	ProductDrillDown struct {
		Product   string          `json:"product"`
		Codes     []string        `json:"codes"`
		Rows      []core.EntryRow `json:"rows"`
		ByCode    []core.Bucket   `json:"by_code"`
		ByProject []core.Bucket   `json:"by_project"`
		Total     core.Hours      `json:"total"`
	}

	// PersonDrillDown is the detail of one person.
	PersonDrillDown struct {
		Person    string          `json:"person"`
		Rows      []core.EntryRow `json:"rows"`
		ByProject []core.Bucket   `json:"by_project"`
		Total     core.Hours      `json:"total"`
	}

	// ProjectDrillDown is the detail of one project name.
	ProjectDrillDown struct {
		Project string          `json:"project"`
		Rows    []core.EntryRow `json:"rows"`
		ByTask  []core.Bucket   `json:"by_task"`
		Total   core.Hours      `json:"total"`
	}
)

// ProjectHours sums hours per project name.
func (p *Pipeline) ProjectHours(entries []core.TimeEntry) []core.Bucket {
	rows := p.rowsFor(ViewProjects, entries)
	return groupSum(rows, func(e core.TimeEntry) string { return e.ProjectName })
}

// SourceHours sums hours per decoded source category.
func (p *Pipeline) SourceHours(entries []core.TimeEntry) []core.Bucket {
	out := groupSum(entries, func(e core.TimeEntry) string { return p.decoder.Decode(e.ProjectCode).Source })
	if p.policy.Excludes(ViewSources) {
		out = dropKey(out, p.policy.OverheadLabel)
	}
	return out
}

// TypeHours sums hours per decoded type category.
func (p *Pipeline) TypeHours(entries []core.TimeEntry) []core.Bucket {
	out := groupSum(entries, func(e core.TimeEntry) string { return p.decoder.Decode(e.ProjectCode).Type })
	if p.policy.Excludes(ViewTypes) {
		out = dropKey(out, p.policy.OverheadLabel)
	}
	return out
}

// ProductDrillDown selects the rows whose code decodes to product.
func (p *Pipeline) ProductDrillDown(entries []core.TimeEntry, product string) ProductDrillDown {
	rows := p.rowsFor(ViewProducts, entries)

	matched := filter(rows, func(e core.TimeEntry) bool {
		return p.decoder.Decode(e.ProjectCode).Product == product
	})

	return ProductDrillDown{
		Product:   product,
		Codes:     distinct(matched, func(e core.TimeEntry) string { return e.ProjectCode }),
		Rows:      core.Rows(matched),
		ByCode:    groupSum(matched, func(e core.TimeEntry) string { return e.ProjectCode }),
		ByProject: groupSum(matched, func(e core.TimeEntry) string { return e.ProjectName }),
		Total:     total(matched),
	}
}

// PersonDrillDown selects the rows of person.
func (p *Pipeline) PersonDrillDown(entries []core.TimeEntry, person string) PersonDrillDown {
	matched := filter(p.rowsFor(ViewPersons, entries), func(e core.TimeEntry) bool {
		return e.PersonName == person
	})
	return PersonDrillDown{
		Person:    person,
		Rows:      core.Rows(matched),
		ByProject: groupSum(matched, func(e core.TimeEntry) string { return e.ProjectName }),
		Total:     total(matched),
	}
}

// ProjectDrillDown selects the rows of project.
func (p *Pipeline) ProjectDrillDown(entries []core.TimeEntry, project string) ProjectDrillDown {
	matched := filter(p.rowsFor(ViewTasks, entries), func(e core.TimeEntry) bool {
		return e.ProjectName == project
	})
	return ProjectDrillDown{
		Project: project,
		Rows:    core.Rows(matched),
		ByTask:  groupSum(matched, func(e core.TimeEntry) string { return e.TaskName }),
		Total:   total(matched),
	}
}

// ProductLabels lists the distinct product labels a product drill-down can
// select, sorted.
func (p *Pipeline) ProductLabels(entries []core.TimeEntry) []string {
	return distinct(p.rowsFor(ViewProducts, entries), func(e core.TimeEntry) string {
		return p.decoder.Decode(e.ProjectCode).Product
	})
}

// Persons lists the distinct person names offered for selection, sorted.
func (p *Pipeline) Persons(entries []core.TimeEntry) []string {
	return distinct(p.rowsFor(ViewPersonOptions, entries), func(e core.TimeEntry) string { return e.PersonName })
}

// ProjectNames lists the distinct project names a project drill-down can
// select, sorted.
func (p *Pipeline) ProjectNames(entries []core.TimeEntry) []string {
	return distinct(p.rowsFor(ViewTasks, entries), func(e core.TimeEntry) string { return e.ProjectName })
}

// rowsFor drops overhead-project rows when v excludes them.
func (p *Pipeline) rowsFor(v View, entries []core.TimeEntry) []core.TimeEntry {
	if !p.policy.Excludes(v) {
		return entries
	}
	return filter(entries, func(e core.TimeEntry) bool { return e.ProjectName != p.policy.OverheadLabel })
}

func filter(entries []core.TimeEntry, keep func(core.TimeEntry) bool) []core.TimeEntry {
	out := make([]core.TimeEntry, 0)
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func distinct(entries []core.TimeEntry, key func(core.TimeEntry) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range entries {
		k := key(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func total(entries []core.TimeEntry) core.Hours {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Duration)
	}
	return sum
}
