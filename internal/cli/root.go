package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"engdash/internal/cli/formatter"
	"engdash/internal/core"
	"engdash/internal/export"
	"engdash/internal/report"
	"engdash/internal/services"
)

// ErrNoBroker is returned by notify when no broker is configured.
var ErrNoBroker = errors.New("AMQP_URL is not set: refresh events are disabled")

// Reports is the read side of the dashboard the report commands print.
type Reports interface {
	DefaultThreshold() core.Hours
	Projects(ctx context.Context, threshold core.Hours) ([]core.Bucket, error)
	Sources(ctx context.Context) ([]core.Bucket, error)
	Types(ctx context.Context) ([]core.Bucket, error)
	Options(ctx context.Context) (services.FilterOptions, error)
	ProductDrillDown(ctx context.Context, product string) (report.ProductDrillDown, error)
	PersonDrillDown(ctx context.Context, person string) (report.PersonDrillDown, error)
	ProjectDrillDown(ctx context.Context, project string) (report.ProjectDrillDown, error)
	Decode(code string) core.DecodedCode
}

// Exporter renders a drill-down as an XLSX workbook.
type Exporter interface {
	Export(ctx context.Context, dim export.Dimension, name string) ([]byte, error)
}

// App holds the services the report commands run against.
type App struct {
	Reports   Reports
	Exporter  Exporter
	Publisher services.RefreshPublisher
	Styles    formatter.Styles
}

// NewRootCmd creates the top-level "engdash-report" command and registers
// all subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "engdash-report",
		Short:         "Print engineering time reports in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newProjectsCmd(app),
		newSourcesCmd(app),
		newTypesCmd(app),
		newProductsCmd(app),
		newProductCmd(app),
		newPersonCmd(app),
		newProjectCmd(app),
		newDecodeCmd(app),
		newExportCmd(app),
		newNotifyCmd(app),
	)

	return root
}
