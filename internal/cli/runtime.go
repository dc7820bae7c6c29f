package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"engdash/internal/adapters"
	"engdash/internal/amqp"
	"engdash/internal/backend"
	"engdash/internal/codes"
	"engdash/internal/config"
	"engdash/internal/export"
	"engdash/internal/log"
	"engdash/internal/report"
	"engdash/internal/services"
)

// Runtime is the wired dashboard stack shared by the server and the report
// command.
type Runtime struct {
	Config    *config.Config
	Backend   *backend.BackendResult
	Snapshot  *adapters.SnapshotSource
	Decoder   *codes.Decoder
	Dashboard *services.DashboardService
	Exporter  *export.Service

	// Broker is nil when AMQP_URL is unset.
	Broker *amqp.Client
}

// NewRuntime builds the row source, snapshot, decoder and dashboard service
// from cfg. The broker connection is optional: when it fails the runtime
// still works locally and the error is logged.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	tables, err := loadTables(cfg.ClassificationFile)
	if err != nil {
		return nil, err
	}
	decoder := codes.NewDecoder(tables)

	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("overhead policy: %w", err)
	}
	if err := checkOverheadLabels(tables, policy); err != nil {
		return nil, err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Backend:  result,
		Snapshot: adapters.NewSnapshotSource(result.Source, cfg.SnapshotTTL),
		Decoder:  decoder,
	}

	var publisher services.RefreshPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, refresh events disabled", log.FieldError, err)
		} else {
			rt.Broker = client
			publisher = client
		}
	}

	rt.Dashboard = services.NewDashboardService(rt.Snapshot, decoder, policy, services.DashboardOptions{
		OtherLabel:       cfg.OtherLabel,
		DefaultThreshold: cfg.Threshold(),
		Publisher:        publisher,
	})
	rt.Exporter = export.NewService(rt.Dashboard, logger.Logger.With(log.FieldComponent, log.ComponentExport))

	logger.Info("Dashboard ready",
		log.FieldBackend, cfg.DataBackend,
		log.FieldVersion, decoder.Version(),
		"overhead_views", policy.Views(),
		"amqp", rt.Broker != nil)

	return rt, nil
}

func loadTables(path string) (*codes.Tables, error) {
	if path == "" {
		t, err := codes.Default()
		if err != nil {
			return nil, fmt.Errorf("built-in classification tables: %w", err)
		}
		return t, nil
	}
	t, err := codes.Load(path)
	if err != nil {
		return nil, fmt.Errorf("classification tables: %w", err)
	}
	return t, nil
}

// checkOverheadLabels fails when a decoded view is configured to drop the
// overhead label but no table entry decodes to it, since the exclusion would
// then match nothing.
func checkOverheadLabels(t *codes.Tables, p report.Policy) error {
	var problems []string
	if p.Excludes(report.ViewSources) && !t.HasSourceLabel(p.OverheadLabel) {
		problems = append(problems, fmt.Sprintf("no [sources] entry decodes to OVERHEAD_LABEL %q", p.OverheadLabel))
	}
	if p.Excludes(report.ViewTypes) && !t.HasTypeLabel(p.OverheadLabel) {
		problems = append(problems, fmt.Sprintf("no [types] entry decodes to OVERHEAD_LABEL %q", p.OverheadLabel))
	}
	if len(problems) > 0 {
		return fmt.Errorf("classification tables %s disagree with the overhead policy: %s",
			t.Version, strings.Join(problems, "; "))
	}
	return nil
}

// Close releases the broker connection and the row source.
func (r *Runtime) Close() error {
	var errs []error
	if r.Broker != nil {
		errs = append(errs, r.Broker.Close())
	}
	if r.Backend != nil {
		errs = append(errs, r.Backend.Close())
	}
	return errors.Join(errs...)
}
