package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeEntryValidate(t *testing.T) {
	good := TimeEntry{ID: 1, PersonName: "A", ProjectName: "X", ProjectCode: "1234-56-78", TaskName: "t1", Duration: decimal.NewFromInt(3)}
	require.NoError(t, good.Validate())

	zero := good
	zero.Duration = decimal.Zero
	assert.NoError(t, zero.Validate(), "zero hours are allowed")

	cases := []struct {
		name string
		mod  func(*TimeEntry)
		want error
	}{
		{"negative duration", func(e *TimeEntry) { e.Duration = decimal.NewFromInt(-1) }, ErrNegativeDuration},
		{"blank person", func(e *TimeEntry) { e.PersonName = "  " }, nil},
		{"empty project", func(e *TimeEntry) { e.ProjectName = "" }, nil},
		{"empty code and task", func(e *TimeEntry) { e.ProjectCode, e.TaskName = "", "" }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mod(&e)
			if tc.want == nil {
				assert.NoError(t, e.Validate())
				return
			}
			assert.ErrorIs(t, e.Validate(), tc.want)
		})
	}
}

func TestRowsDropID(t *testing.T) {
	entries := []TimeEntry{
		{ID: 7, PersonName: "A", ProjectName: "X", ProjectCode: "c", TaskName: "t", Duration: decimal.NewFromInt(2)},
	}
	rows := Rows(entries)
	require.Len(t, rows, 1)
	assert.Equal(t, EntryRow{PersonName: "A", ProjectName: "X", ProjectCode: "c", TaskName: "t", Duration: decimal.NewFromInt(2)}, rows[0])
}

func TestTotalAndLookup(t *testing.T) {
	buckets := []Bucket{
		{Key: "P1", Hours: decimal.NewFromInt(10)},
		{Key: "P2", Hours: decimal.RequireFromString("0.5")},
	}
	assert.True(t, Total(buckets).Equal(decimal.RequireFromString("10.5")))

	h, ok := Lookup(buckets, "P2")
	assert.True(t, ok)
	assert.True(t, h.Equal(decimal.RequireFromString("0.5")))

	_, ok = Lookup(buckets, "missing")
	assert.False(t, ok)
	assert.True(t, Total(nil).IsZero())
}
