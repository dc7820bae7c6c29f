package export

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"engdash/internal/core"
	"engdash/internal/log"
	"engdash/internal/report"
)

type fakeDrills struct {
	err error
}

func rows() []core.EntryRow {
	return []core.EntryRow{
		{PersonName: "Sara", ProjectName: "Atlas API", ProjectCode: "1234-10-01", TaskName: "auth", Duration: decimal.RequireFromString("3.5")},
		{PersonName: "Ali", ProjectName: "Atlas API", ProjectCode: "1234-20-02", TaskName: "fix", Duration: decimal.NewFromInt(2)},
	}
}

func (f fakeDrills) ProductDrillDown(_ context.Context, product string) (report.ProductDrillDown, error) {
	return report.ProductDrillDown{
		Product: product,
		Codes:   []string{"1234-10-01", "1234-20-02"},
		Rows:    rows(),
		ByCode: []core.Bucket{
			{Key: "1234-10-01", Hours: decimal.RequireFromString("3.5")},
			{Key: "1234-20-02", Hours: decimal.NewFromInt(2)},
		},
		ByProject: []core.Bucket{{Key: "Atlas API", Hours: decimal.RequireFromString("5.5")}},
		Total:     decimal.RequireFromString("5.5"),
	}, f.err
}

func (f fakeDrills) PersonDrillDown(_ context.Context, person string) (report.PersonDrillDown, error) {
	return report.PersonDrillDown{
		Person:    person,
		Rows:      rows()[:1],
		ByProject: []core.Bucket{{Key: "Atlas API", Hours: decimal.RequireFromString("3.5")}},
		Total:     decimal.RequireFromString("3.5"),
	}, f.err
}

func (f fakeDrills) ProjectDrillDown(_ context.Context, project string) (report.ProjectDrillDown, error) {
	return report.ProjectDrillDown{
		Project: project,
		Rows:    []core.EntryRow{},
		ByTask:  []core.Bucket{},
		Total:   decimal.Zero,
	}, f.err
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, axis)
	require.NoError(t, err)
	return v
}

func TestParseDimension(t *testing.T) {
	for in, want := range map[string]Dimension{
		"product":  DimensionProduct,
		" Person ": DimensionPerson,
		"PROJECT":  DimensionProject,
	} {
		got, err := ParseDimension(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDimension("source")
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestService_ExportProduct(t *testing.T) {
	svc := NewService(fakeDrills{}, log.Discard().Logger)

	data, err := svc.Export(context.Background(), DimensionProduct, "Atlas")
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{"Summary", "Rows"}, f.GetSheetList())

	assert.Equal(t, "Person", cell(t, f, "Rows", "A1"))
	assert.Equal(t, "Hours", cell(t, f, "Rows", "E1"))
	assert.Equal(t, "Sara", cell(t, f, "Rows", "A2"))
	assert.Equal(t, "1234-20-02", cell(t, f, "Rows", "C3"))
	assert.Equal(t, "3.5", cell(t, f, "Rows", "E2"))

	assert.Equal(t, "Atlas", cell(t, f, "Summary", "B1"))
	assert.Equal(t, "5.5", cell(t, f, "Summary", "B2"))
	assert.Equal(t, "Hours by code", cell(t, f, "Summary", "A4"))
	assert.Equal(t, "1234-10-01", cell(t, f, "Summary", "A5"))
	assert.Equal(t, "Hours by project", cell(t, f, "Summary", "A8"))
	assert.Equal(t, "Atlas API", cell(t, f, "Summary", "A9"))
}

func TestService_ExportPersonAndProject(t *testing.T) {
	svc := NewService(fakeDrills{}, log.Discard().Logger)
	ctx := context.Background()

	data, err := svc.Export(ctx, DimensionPerson, "Sara")
	require.NoError(t, err)
	f := open(t, data)
	assert.Equal(t, "Person", cell(t, f, "Summary", "A1"))
	assert.Equal(t, "Hours by project", cell(t, f, "Summary", "A4"))
	assert.Equal(t, "", cell(t, f, "Rows", "A3"))

	data, err = svc.Export(ctx, DimensionProject, "Nobody")
	require.NoError(t, err)
	f = open(t, data)
	assert.Equal(t, "Nobody", cell(t, f, "Summary", "B1"))
	assert.Equal(t, "0", cell(t, f, "Summary", "B2"))
	assert.Equal(t, "Task", cell(t, f, "Rows", "D1"))
	assert.Equal(t, "", cell(t, f, "Rows", "A2"))
}

func TestService_ExportErrors(t *testing.T) {
	boom := errors.New("source down")
	svc := NewService(fakeDrills{err: boom}, nil)

	_, err := svc.Export(context.Background(), DimensionProduct, "Atlas")
	assert.ErrorIs(t, err, boom)

	_, err = NewService(fakeDrills{}, nil).Export(context.Background(), Dimension("source"), "x")
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "product-Atlas.xlsx", Filename(DimensionProduct, "Atlas"))
	assert.Equal(t, "project-a_b.xlsx", Filename(DimensionProject, "a/b"))
	assert.Equal(t, "person-all.xlsx", Filename(DimensionPerson, "  "))
}
