package report

import (
	"fmt"
	"sort"
	"strings"
)

// View names an aggregation whose treatment of overhead rows is configurable.
type View string

const (
	ViewProjects      View = "projects"
	ViewSources       View = "sources"
	ViewTypes         View = "types"
	ViewProducts      View = "products"
	ViewPersons       View = "persons"
	ViewTasks         View = "tasks"
	ViewPersonOptions View = "person-options"
)

// DefaultOverheadLabel marks ongoing overhead work, as a project name and
// as a decoded source label.
const DefaultOverheadLabel = "امور جاری"

// DefaultExclude lists the views that drop overhead by default. The type
// view keeps it: overhead is excluded as a project, not as a kind of work.
const DefaultExclude = "projects,sources,products,person-options"

var allViews = []View{
	ViewProjects, ViewSources, ViewTypes, ViewProducts,
	ViewPersons, ViewTasks, ViewPersonOptions,
}

// Policy decides which views exclude the overhead label.
//
// Row-level views (projects, products, persons, tasks, person-options)
// drop rows whose project name is the label. Decoded views (sources, types)
// drop the bucket keyed by the label after grouping.
type Policy struct {
	OverheadLabel string
	exclude       map[View]bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	p, _ := ParsePolicy(DefaultOverheadLabel, DefaultExclude)
	return p
}

// NewPolicy builds a policy excluding overhead from the given views.
func NewPolicy(label string, views ...View) Policy {
	p := Policy{OverheadLabel: label, exclude: make(map[View]bool, len(views))}
	for _, v := range views {
		p.exclude[v] = true
	}
	return p
}

// ParsePolicy parses a comma separated view list. An empty list excludes
// nothing; "none" is accepted as an explicit spelling of that.
func ParsePolicy(label, exclude string) (Policy, error) {
	var views []View
	var unknown []string
	for _, raw := range strings.Split(exclude, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || name == "none" {
			continue
		}
		if !isView(View(name)) {
			unknown = append(unknown, name)
			continue
		}
		views = append(views, View(name))
	}
	if len(unknown) > 0 {
		return Policy{}, fmt.Errorf("unknown overhead views %v: must be among %v", unknown, allViews)
	}
	return NewPolicy(label, views...), nil
}

// Excludes reports whether v drops overhead.
func (p Policy) Excludes(v View) bool {
	return p.OverheadLabel != "" && p.exclude[v]
}

// Views returns the excluding views in a stable order.
func (p Policy) Views() []View {
	out := make([]View, 0, len(p.exclude))
	for v, on := range p.exclude {
		if on {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func isView(v View) bool {
	for _, known := range allViews {
		if v == known {
			return true
		}
	}
	return false
}
