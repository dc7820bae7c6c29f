package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdash/internal/core"
)

func testTables() *Tables {
	return &Tables{
		Version:      "test",
		Layout:       Layout{ProductWidth: 4, SourceWidth: 2, TypeWidth: 2, Separator: "-"},
		UnknownLabel: "unknown",
		InvalidLabel: "invalid",
		Products:     map[string]string{"1234": "Atlas", "0000": "overhead"},
		Sources:      map[string]string{"10": "Internal", "00": "overhead"},
		Types:        map[string]string{"01": "Development"},
	}
}

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder(testTables())

	tests := []struct {
		name string
		code string
		want core.DecodedCode
	}{
		{"separated", "1234-10-01", core.DecodedCode{Valid: true, Source: "Internal", Type: "Development", Product: "Atlas"}},
		{"compact", "12341001", core.DecodedCode{Valid: true, Source: "Internal", Type: "Development", Product: "Atlas"}},
		{"surrounding whitespace", "  1234-10-01\t", core.DecodedCode{Valid: true, Source: "Internal", Type: "Development", Product: "Atlas"}},
		{"unmapped source only", "1234-56-01", core.DecodedCode{Valid: true, Source: "unknown", Type: "Development", Product: "Atlas"}},
		{"unmapped type only", "1234-10-78", core.DecodedCode{Valid: true, Source: "Internal", Type: "unknown", Product: "Atlas"}},
		{"unmapped product only", "9999-10-01", core.DecodedCode{Valid: true, Source: "Internal", Type: "Development", Product: "unknown"}},
		{"everything unmapped", "9999-99-99", core.DecodedCode{Valid: true, Source: "unknown", Type: "unknown", Product: "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Decode(tt.code))
		})
	}
}

func TestDecoder_InvalidShapes(t *testing.T) {
	d := NewDecoder(testTables())
	invalid := core.DecodedCode{Valid: false, Source: "invalid", Type: "invalid", Product: "invalid"}

	for _, code := range []string{
		"",
		"   ",
		"1234-10",
		"1234-10-01-02",
		"123-10-01",
		"1234-1-001",
		"1234100",
		"123410011",
		"12a4-10-01",
		"1234_10_01",
		"abcd-ef-gh",
		"1234--01",
	} {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, invalid, d.Decode(code))
			assert.Equal(t, "invalid", d.Product(code))
		})
	}
}

func TestDecoder_Deterministic(t *testing.T) {
	d := NewDecoder(testTables())
	first := d.Decode("1234-10-01")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, d.Decode("1234-10-01"))
	}

	hits, _ := d.memo.Stats()
	assert.Equal(t, int64(3), hits)

	other := NewDecoder(testTables())
	assert.Equal(t, first, other.Decode("1234-10-01"))
}

func TestDecoder_Product(t *testing.T) {
	d := NewDecoder(testTables())
	assert.Equal(t, "Atlas", d.Product("1234-56-78"))
	assert.Equal(t, "unknown", d.Product("5555-10-01"))
	assert.Equal(t, "test", d.Version())
}

func TestDecoder_CompactOnlyLayout(t *testing.T) {
	tables := testTables()
	tables.Layout.Separator = ""
	d := NewDecoder(tables)

	assert.True(t, d.Decode("12341001").Valid)
	assert.False(t, d.Decode("1234-10-01").Valid)
}

func TestDecoder_DefaultTables(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)
	d := NewDecoder(tables)

	dc := d.Decode("1234-56-78")
	assert.True(t, dc.Valid)
	assert.Equal(t, "Atlas", dc.Product)
	assert.Equal(t, tables.UnknownLabel, dc.Source)
	assert.Equal(t, tables.UnknownLabel, dc.Type)

	overhead := d.Decode("0000-00-01")
	assert.Equal(t, "امور جاری", overhead.Source)
	assert.Equal(t, "Development", overhead.Type)
}

func TestTables_LabelLookup(t *testing.T) {
	tables := testTables()
	assert.True(t, tables.HasSourceLabel("overhead"))
	assert.False(t, tables.HasSourceLabel("Atlas"))
	assert.True(t, tables.HasTypeLabel("Development"))
	assert.False(t, tables.HasTypeLabel("overhead"))
}
