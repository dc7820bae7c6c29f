package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"engdash/internal/codes"
	"engdash/internal/core"
	"engdash/internal/log"
	"engdash/internal/report"
	"engdash/internal/source"
)

type (
	// Invalidator is implemented by row sources that cache reads.
	Invalidator interface {
		Invalidate()
	}

	// RefreshPublisher announces that the underlying rows changed.
	RefreshPublisher interface {
		PublishRefresh(ctx context.Context, reason string) error
	}
)

// DashboardOptions tunes presentation defaults.
type DashboardOptions struct {
	OtherLabel       string
	DefaultThreshold core.Hours
	Publisher        RefreshPublisher
}

// FilterOptions lists the values each drill-down can select.
type FilterOptions struct {
	Products []string `json:"products"`
	Persons  []string `json:"persons"`
	Projects []string `json:"projects"`
}

// Overview is everything the dashboard landing page shows.
type Overview struct {
	Threshold     core.Hours    `json:"threshold"`
	OtherLabel    string        `json:"other_label"`
	Projects      []core.Bucket `json:"projects"`
	Sources       []core.Bucket `json:"sources"`
	Types         []core.Bucket `json:"types"`
	TotalHours    core.Hours    `json:"total_hours"`
	Entries       int           `json:"entries"`
	Options       FilterOptions `json:"options"`
	TablesVersion string        `json:"tables_version"`
}

// DashboardService reads the current rows and runs the aggregation pipeline
// over them. Every call works on one consistent read.
type DashboardService struct {
	rows      source.RowSource
	decoder   *codes.Decoder
	pipeline  *report.Pipeline
	other     string
	threshold core.Hours
	publisher RefreshPublisher
}

func NewDashboardService(rows source.RowSource, decoder *codes.Decoder, policy report.Policy, opts DashboardOptions) *DashboardService {
	other := opts.OtherLabel
	if other == "" {
		other = report.DefaultOtherLabel
	}
	return &DashboardService{
		rows:      rows,
		decoder:   decoder,
		pipeline:  report.NewPipeline(decoder, policy),
		other:     other,
		threshold: opts.DefaultThreshold,
		publisher: opts.Publisher,
	}
}

// DefaultThreshold is used when a caller does not pick one.
func (s *DashboardService) DefaultThreshold() core.Hours {
	return s.threshold
}

// Policy returns the overhead policy in use.
func (s *DashboardService) Policy() report.Policy {
	return s.pipeline.Policy()
}

func (s *DashboardService) fetch(ctx context.Context) ([]core.TimeEntry, error) {
	entries, err := s.rows.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	return entries, nil
}

// Overview computes the landing page tables with projects bucketed at
// threshold.
func (s *DashboardService) Overview(ctx context.Context, threshold core.Hours) (Overview, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return Overview{}, err
	}

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Duration)
	}

	return Overview{
		Threshold:     threshold,
		OtherLabel:    s.other,
		Projects:      report.Bucket(s.pipeline.ProjectHours(entries), threshold, s.other),
		Sources:       s.pipeline.SourceHours(entries),
		Types:         s.pipeline.TypeHours(entries),
		TotalHours:    total,
		Entries:       len(entries),
		Options:       s.options(entries),
		TablesVersion: s.decoder.Version(),
	}, nil
}

// Projects returns per-project hours bucketed at threshold.
func (s *DashboardService) Projects(ctx context.Context, threshold core.Hours) ([]core.Bucket, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return report.Bucket(s.pipeline.ProjectHours(entries), threshold, s.other), nil
}

// Sources returns hours per decoded source.
func (s *DashboardService) Sources(ctx context.Context) ([]core.Bucket, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.pipeline.SourceHours(entries), nil
}

// Types returns hours per decoded type.
func (s *DashboardService) Types(ctx context.Context) ([]core.Bucket, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.pipeline.TypeHours(entries), nil
}

// Options returns the filter option lists.
func (s *DashboardService) Options(ctx context.Context) (FilterOptions, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return s.options(entries), nil
}

func (s *DashboardService) options(entries []core.TimeEntry) FilterOptions {
	return FilterOptions{
		Products: s.pipeline.ProductLabels(entries),
		Persons:  s.pipeline.Persons(entries),
		Projects: s.pipeline.ProjectNames(entries),
	}
}

// ProductDrillDown details one product label.
func (s *DashboardService) ProductDrillDown(ctx context.Context, product string) (report.ProductDrillDown, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return report.ProductDrillDown{}, err
	}
	return s.pipeline.ProductDrillDown(entries, product), nil
}

// PersonDrillDown details one person.
func (s *DashboardService) PersonDrillDown(ctx context.Context, person string) (report.PersonDrillDown, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return report.PersonDrillDown{}, err
	}
	return s.pipeline.PersonDrillDown(entries, person), nil
}

// ProjectDrillDown details one project name.
func (s *DashboardService) ProjectDrillDown(ctx context.Context, project string) (report.ProjectDrillDown, error) {
	entries, err := s.fetch(ctx)
	if err != nil {
		return report.ProjectDrillDown{}, err
	}
	return s.pipeline.ProjectDrillDown(entries, project), nil
}

// Decode classifies a single code.
func (s *DashboardService) Decode(code string) core.DecodedCode {
	return s.decoder.Decode(code)
}

// TablesVersion reports the classification tables version.
func (s *DashboardService) TablesVersion() string {
	return s.decoder.Version()
}

// Refresh drops the cached snapshot and announces the refresh to other
// instances. A failed announcement is logged, not returned: the local
// refresh already happened.
func (s *DashboardService) Refresh(ctx context.Context, reason string) {
	s.Invalidate()
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRefresh(ctx, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish refresh event",
			log.FieldComponent, log.ComponentAMQP, log.FieldError, err)
	}
}

// Invalidate drops the cached snapshot without announcing it.
func (s *DashboardService) Invalidate() {
	if inv, ok := s.rows.(Invalidator); ok {
		inv.Invalidate()
	}
}

// Ready checks the row source is reachable.
func (s *DashboardService) Ready(ctx context.Context) error {
	if p, ok := s.rows.(source.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("row source not ready: %w", err)
		}
	}
	return nil
}
