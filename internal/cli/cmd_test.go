package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdash/internal/core"
	"engdash/internal/export"
	"engdash/internal/report"
	"engdash/internal/services"
)

func h(v string) core.Hours { return decimal.RequireFromString(v) }

type fakeReports struct {
	threshold     core.Hours
	gotThreshold  core.Hours
	err           error
	products      []string
	productDrill  report.ProductDrillDown
	personDrill   report.PersonDrillDown
	projectDrill  report.ProjectDrillDown
	lastDrillName string
}

func (f *fakeReports) DefaultThreshold() core.Hours { return f.threshold }

func (f *fakeReports) Projects(_ context.Context, threshold core.Hours) ([]core.Bucket, error) {
	f.gotThreshold = threshold
	if f.err != nil {
		return nil, f.err
	}
	return []core.Bucket{{Key: "Alpha", Hours: h("10")}, {Key: "Other", Hours: h("1.5")}}, nil
}

func (f *fakeReports) Sources(context.Context) ([]core.Bucket, error) {
	return []core.Bucket{{Key: "Internal", Hours: h("4")}}, f.err
}

func (f *fakeReports) Types(context.Context) ([]core.Bucket, error) {
	return nil, f.err
}

func (f *fakeReports) Options(context.Context) (services.FilterOptions, error) {
	return services.FilterOptions{Products: f.products}, f.err
}

func (f *fakeReports) ProductDrillDown(_ context.Context, product string) (report.ProductDrillDown, error) {
	f.lastDrillName = product
	return f.productDrill, f.err
}

func (f *fakeReports) PersonDrillDown(_ context.Context, person string) (report.PersonDrillDown, error) {
	f.lastDrillName = person
	return f.personDrill, f.err
}

func (f *fakeReports) ProjectDrillDown(_ context.Context, project string) (report.ProjectDrillDown, error) {
	f.lastDrillName = project
	return f.projectDrill, f.err
}

func (f *fakeReports) Decode(code string) core.DecodedCode {
	if code == "bad" {
		return core.DecodedCode{Source: "Invalid", Type: "Invalid", Product: "Invalid"}
	}
	return core.DecodedCode{Valid: true, Source: "Internal", Type: "Development", Product: "Billing"}
}

type fakeExporter struct {
	dim  export.Dimension
	name string
	err  error
}

func (f *fakeExporter) Export(_ context.Context, dim export.Dimension, name string) ([]byte, error) {
	f.dim, f.name = dim, name
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK-fake"), nil
}

type fakePublisher struct {
	reasons []string
	err     error
}

func (f *fakePublisher) PublishRefresh(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return f.err
}

func testApp() (*App, *fakeReports) {
	reports := &fakeReports{threshold: h("2")}
	return &App{Reports: reports, Exporter: &fakeExporter{}}, reports
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestProjectsCmd_DefaultThreshold(t *testing.T) {
	app, reports := testApp()

	out, err := executeCmd(t, app, "projects")
	require.NoError(t, err)

	assert.True(t, reports.gotThreshold.Equal(h("2")))
	assert.Contains(t, out, "Project")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Other")
	assert.Contains(t, out, "11.5")
}

func TestProjectsCmd_ThresholdFlag(t *testing.T) {
	app, reports := testApp()

	_, err := executeCmd(t, app, "projects", "--threshold", "0,5")
	require.NoError(t, err)
	assert.True(t, reports.gotThreshold.Equal(h("0.5")))

	_, err = executeCmd(t, app, "projects", "--threshold", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --threshold")
}

func TestProjectsCmd_ThresholdHelp(t *testing.T) {
	app, _ := testApp()

	out, err := executeCmd(t, app, "projects", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Fold projects below this many hours into Other")
	assert.NotContains(t, out, "at or below")
}

func TestProjectsCmd_SourceError(t *testing.T) {
	app, reports := testApp()
	reports.err = errors.New("fetch entries: sheet unavailable")

	_, err := executeCmd(t, app, "projects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet unavailable")
}

func TestSourcesAndTypesCmd(t *testing.T) {
	app, _ := testApp()

	out, err := executeCmd(t, app, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "Internal")

	out, err = executeCmd(t, app, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "No hours recorded.")
}

func TestProductsCmd(t *testing.T) {
	app, reports := testApp()

	out, err := executeCmd(t, app, "products")
	require.NoError(t, err)
	assert.Contains(t, out, "No products.")

	reports.products = []string{"Billing", "Search"}
	out, err = executeCmd(t, app, "products")
	require.NoError(t, err)
	assert.Equal(t, "Billing\nSearch\n", out)
}

func TestProductCmd(t *testing.T) {
	app, reports := testApp()
	reports.productDrill = report.ProductDrillDown{
		Product:   "Billing",
		Codes:     []string{"1234-56-78"},
		ByCode:    []core.Bucket{{Key: "1234-56-78", Hours: h("3")}},
		ByProject: []core.Bucket{{Key: "Alpha", Hours: h("3")}},
		Rows: []core.EntryRow{
			{PersonName: "Sara", ProjectName: "Alpha", ProjectCode: "1234-56-78", TaskName: "API", Duration: h("3")},
		},
		Total: h("3"),
	}

	out, err := executeCmd(t, app, "product", "Billing")
	require.NoError(t, err)

	assert.Equal(t, "Billing", reports.lastDrillName)
	assert.Contains(t, out, "Product: Billing")
	assert.Contains(t, out, "Total hours: 3")
	assert.Contains(t, out, "Codes: 1234-56-78")
	assert.Contains(t, out, "Sara")
	assert.Contains(t, out, "API")
}

func TestDrillDownCmds_RequireName(t *testing.T) {
	app, _ := testApp()
	for _, name := range []string{"product", "person", "project"} {
		_, err := executeCmd(t, app, name)
		assert.Error(t, err, name)
	}
}

func TestPersonAndProjectCmd(t *testing.T) {
	app, reports := testApp()
	reports.personDrill = report.PersonDrillDown{
		Person:    "Sara",
		ByProject: []core.Bucket{{Key: "Alpha", Hours: h("1.25")}},
		Total:     h("1.25"),
	}
	reports.projectDrill = report.ProjectDrillDown{
		Project: "Alpha",
		ByTask:  []core.Bucket{{Key: "API", Hours: h("4")}},
		Total:   h("4"),
	}

	out, err := executeCmd(t, app, "person", "Sara")
	require.NoError(t, err)
	assert.Contains(t, out, "Person: Sara")
	assert.Contains(t, out, "1.25")

	out, err = executeCmd(t, app, "project", "Alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "Project: Alpha")
	assert.Contains(t, out, "API")
}

func TestDecodeCmd(t *testing.T) {
	app, _ := testApp()

	out, err := executeCmd(t, app, "decode", "1234-56-78", "bad")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "Billing")
	assert.Contains(t, lines[2], "yes")
	assert.Contains(t, lines[3], "Invalid")
	assert.Contains(t, lines[3], "no")

	_, err = executeCmd(t, app, "decode")
	assert.Error(t, err)
}

func TestExportCmd(t *testing.T) {
	app, _ := testApp()
	exporter := app.Exporter.(*fakeExporter)
	path := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := executeCmd(t, app, "export", "Person", "Sara", "-o", path)
	require.NoError(t, err)

	assert.Equal(t, export.DimensionPerson, exporter.dim)
	assert.Equal(t, "Sara", exporter.name)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK-fake", string(data))
}

func TestExportCmd_UnknownDimension(t *testing.T) {
	app, _ := testApp()

	_, err := executeCmd(t, app, "export", "team", "x", "-o", filepath.Join(t.TempDir(), "x.xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrUnknownDimension)
}

func TestNotifyCmd(t *testing.T) {
	app, _ := testApp()

	_, err := executeCmd(t, app, "notify")
	assert.ErrorIs(t, err, ErrNoBroker)

	pub := &fakePublisher{}
	app.Publisher = pub
	out, err := executeCmd(t, app, "notify", "--reason", "import")
	require.NoError(t, err)
	assert.Equal(t, []string{"import"}, pub.reasons)
	assert.Contains(t, out, "Refresh event published.")

	pub.err = errors.New("circuit breaker is open")
	_, err = executeCmd(t, app, "notify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish refresh")
}
