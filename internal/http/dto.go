package http

import (
	"engdash/internal/core"
	"engdash/internal/report"
	"engdash/internal/services"
)

// JSON bodies carry hours as plain numbers so charting code can use them
// directly.

type bucketDTO struct {
	Key   string  `json:"key"`
	Hours float64 `json:"hours"`
}

type rowDTO struct {
	PersonName  string  `json:"person_name"`
	ProjectName string  `json:"project_name"`
	ProjectCode string  `json:"project_code"`
	TaskName    string  `json:"task_name"`
	Duration    float64 `json:"duration"`
}

type overviewDTO struct {
	Threshold     float64                `json:"threshold"`
	OtherLabel    string                 `json:"other_label"`
	Projects      []bucketDTO            `json:"projects"`
	Sources       []bucketDTO            `json:"sources"`
	Types         []bucketDTO            `json:"types"`
	TotalHours    float64                `json:"total_hours"`
	Entries       int                    `json:"entries"`
	Options       services.FilterOptions `json:"options"`
	TablesVersion string                 `json:"tables_version"`
}

type productDrillDTO struct {
	Product   string      `json:"product"`
	Codes     []string    `json:"codes"`
	Rows      []rowDTO    `json:"rows"`
	ByCode    []bucketDTO `json:"by_code"`
	ByProject []bucketDTO `json:"by_project"`
	Total     float64     `json:"total"`
}

type personDrillDTO struct {
	Person    string      `json:"person"`
	Rows      []rowDTO    `json:"rows"`
	ByProject []bucketDTO `json:"by_project"`
	Total     float64     `json:"total"`
}

type projectDrillDTO struct {
	Project string      `json:"project"`
	Rows    []rowDTO    `json:"rows"`
	ByTask  []bucketDTO `json:"by_task"`
	Total   float64     `json:"total"`
}

type decodeDTO struct {
	Code          string `json:"code"`
	Valid         bool   `json:"valid"`
	Source        string `json:"source"`
	Type          string `json:"type"`
	Product       string `json:"product"`
	TablesVersion string `json:"tables_version"`
}

func toBuckets(in []core.Bucket) []bucketDTO {
	out := make([]bucketDTO, 0, len(in))
	for _, b := range in {
		out = append(out, bucketDTO{Key: b.Key, Hours: b.Hours.InexactFloat64()})
	}
	return out
}

func toRows(in []core.EntryRow) []rowDTO {
	out := make([]rowDTO, 0, len(in))
	for _, r := range in {
		out = append(out, rowDTO{
			PersonName:  r.PersonName,
			ProjectName: r.ProjectName,
			ProjectCode: r.ProjectCode,
			TaskName:    r.TaskName,
			Duration:    r.Duration.InexactFloat64(),
		})
	}
	return out
}

func toOverview(o services.Overview) overviewDTO {
	return overviewDTO{
		Threshold:     o.Threshold.InexactFloat64(),
		OtherLabel:    o.OtherLabel,
		Projects:      toBuckets(o.Projects),
		Sources:       toBuckets(o.Sources),
		Types:         toBuckets(o.Types),
		TotalHours:    o.TotalHours.InexactFloat64(),
		Entries:       o.Entries,
		Options:       o.Options,
		TablesVersion: o.TablesVersion,
	}
}

func toProductDrill(d report.ProductDrillDown) productDrillDTO {
	codes := d.Codes
	if codes == nil {
		codes = []string{}
	}
	return productDrillDTO{
		Product:   d.Product,
		Codes:     codes,
		Rows:      toRows(d.Rows),
		ByCode:    toBuckets(d.ByCode),
		ByProject: toBuckets(d.ByProject),
		Total:     d.Total.InexactFloat64(),
	}
}

func toPersonDrill(d report.PersonDrillDown) personDrillDTO {
	return personDrillDTO{
		Person:    d.Person,
		Rows:      toRows(d.Rows),
		ByProject: toBuckets(d.ByProject),
		Total:     d.Total.InexactFloat64(),
	}
}

func toProjectDrill(d report.ProjectDrillDown) projectDrillDTO {
	return projectDrillDTO{
		Project: d.Project,
		Rows:    toRows(d.Rows),
		ByTask:  toBuckets(d.ByTask),
		Total:   d.Total.InexactFloat64(),
	}
}
