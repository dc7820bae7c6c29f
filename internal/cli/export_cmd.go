package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"engdash/internal/export"
)

func newExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export DIMENSION NAME",
		Short: "Write a product, person or project drill-down to an XLSX file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := export.ParseDimension(args[0])
			if err != nil {
				return err
			}
			data, err := app.Exporter.Export(cmd.Context(), dim, args[1])
			if err != nil {
				return err
			}
			if output == "" {
				output = export.Filename(dim, args[1])
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default derived from the dimension and name)")

	return cmd
}

func newNotifyCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Tell running dashboards that time entries changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Publisher == nil {
				return ErrNoBroker
			}
			if err := app.Publisher.PublishRefresh(cmd.Context(), reason); err != nil {
				return fmt.Errorf("publish refresh: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Refresh event published.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "manual", "Reason recorded on the event")

	return cmd
}
