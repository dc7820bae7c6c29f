package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"engdash/internal/core"
)

func newProjectsCmd(app *App) *cobra.Command {
	var threshold string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Hours per project, small projects folded into Other",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := app.Reports.DefaultThreshold()
			if cmd.Flags().Changed("threshold") {
				parsed, err := core.ParseHours(threshold)
				if err != nil {
					return fmt.Errorf("invalid --threshold %q: must be a non-negative number of hours", threshold)
				}
				t = parsed
			}

			buckets, err := app.Reports.Projects(cmd.Context(), t)
			if err != nil {
				return err
			}
			app.printBuckets(cmd.OutOrStdout(), "Project", buckets)
			return nil
		},
	}

	cmd.Flags().StringVar(&threshold, "threshold", "", "Fold projects below this many hours into Other")

	return cmd
}

func newSourcesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Hours per decoded source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets, err := app.Reports.Sources(cmd.Context())
			if err != nil {
				return err
			}
			app.printBuckets(cmd.OutOrStdout(), "Source", buckets)
			return nil
		},
	}
}

func newTypesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Hours per decoded type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets, err := app.Reports.Types(cmd.Context())
			if err != nil {
				return err
			}
			app.printBuckets(cmd.OutOrStdout(), "Type", buckets)
			return nil
		},
	}
}

func newProductsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the product labels that can be drilled into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.Reports.Options(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(opts.Products) == 0 {
				fmt.Fprintln(out, app.Styles.Dim.Render("No products."))
				return nil
			}
			for _, p := range opts.Products {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}

func newProductCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "product NAME",
		Short: "Drill into one product label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.Reports.ProductDrillDown(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			app.printTitle(out, "Product", d.Product, d.Total)
			if len(d.Codes) > 0 {
				fmt.Fprintf(out, "Codes: %s\n\n", strings.Join(d.Codes, ", "))
			}
			app.printBuckets(out, "Project code", d.ByCode)
			fmt.Fprintln(out)
			app.printBuckets(out, "Project", d.ByProject)
			fmt.Fprintln(out)
			app.printRows(out, d.Rows)
			return nil
		},
	}
}

func newPersonCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "person NAME",
		Short: "Drill into one person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.Reports.PersonDrillDown(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			app.printTitle(out, "Person", d.Person, d.Total)
			app.printBuckets(out, "Project", d.ByProject)
			fmt.Fprintln(out)
			app.printRows(out, d.Rows)
			return nil
		},
	}
}

func newProjectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "project NAME",
		Short: "Drill into one project name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.Reports.ProjectDrillDown(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			app.printTitle(out, "Project", d.Project, d.Total)
			app.printBuckets(out, "Task", d.ByTask)
			fmt.Fprintln(out)
			app.printRows(out, d.Rows)
			return nil
		},
	}
}

func newDecodeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "decode CODE...",
		Short: "Classify project codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, code := range args {
				dc := app.Reports.Decode(code)
				valid := app.Styles.Good.Render("yes")
				if !dc.Valid {
					valid = app.Styles.Bad.Render("no")
				}
				rows = append(rows, []string{code, valid, dc.Source, dc.Type, dc.Product})
			}
			fmt.Fprint(cmd.OutOrStdout(), app.Styles.RenderTable(
				[]string{"Code", "Valid", "Source", "Type", "Product"}, rows))
			return nil
		},
	}
}

func (app *App) printTitle(w io.Writer, label, name string, total core.Hours) {
	fmt.Fprintf(w, "%s %s\n", app.Styles.Bold.Render(label+":"), name)
	fmt.Fprintf(w, "%s %s\n\n", app.Styles.Dim.Render("Total hours:"), core.FormatHours(total))
}

func (app *App) printBuckets(w io.Writer, label string, buckets []core.Bucket) {
	if len(buckets) == 0 {
		fmt.Fprintln(w, app.Styles.Dim.Render("No hours recorded."))
		return
	}
	rows := make([][]string, 0, len(buckets)+1)
	for _, b := range buckets {
		rows = append(rows, []string{b.Key, core.FormatHours(b.Hours)})
	}
	rows = append(rows, []string{app.Styles.Bold.Render("Total"), core.FormatHours(core.Total(buckets))})
	fmt.Fprint(w, app.Styles.RenderTable([]string{label, "Hours"}, rows, 1))
}

func (app *App) printRows(w io.Writer, entries []core.EntryRow) {
	if len(entries) == 0 {
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.PersonName, e.ProjectName, e.ProjectCode, e.TaskName, core.FormatHours(e.Duration)})
	}
	fmt.Fprint(w, app.Styles.RenderTable(
		[]string{"Person", "Project", "Project code", "Task", "Hours"}, rows, 4))
}
