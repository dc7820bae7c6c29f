package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engdash/internal/core"
)

func table() []core.Bucket {
	return []core.Bucket{
		{Key: "P1", Hours: h("10")},
		{Key: "P2", Hours: h("5")},
		{Key: "P3", Hours: h("2")},
	}
}

func TestBucket(t *testing.T) {
	got := Bucket(table(), h("6"), "Other")
	require.Len(t, got, 2)
	assert.Equal(t, "P1", got[0].Key)
	assert.True(t, h("10").Equal(got[0].Hours))
	assert.Equal(t, "Other", got[1].Key)
	assert.True(t, h("7").Equal(got[1].Hours))
}

func TestBucket_ThresholdIsInclusive(t *testing.T) {
	got := Bucket(table(), h("5"), "Other")
	assert.Equal(t, []string{"P1", "P2", "Other"}, keys(got))
}

func TestBucket_PreservesTotal(t *testing.T) {
	want := core.Total(table())
	for _, threshold := range []string{"-1", "0", "1.5", "2", "3", "5", "9.99", "10", "11", "1000"} {
		t.Run(threshold, func(t *testing.T) {
			got := Bucket(table(), h(threshold), "Other")
			assert.True(t, want.Equal(core.Total(got)), "total changed: %s", core.Total(got))
		})
	}
}

func TestBucket_Extremes(t *testing.T) {
	below := Bucket(table(), h("0"), "Other")
	assert.Equal(t, []string{"P1", "P2", "P3"}, keys(below))

	above := Bucket(table(), h("100"), "Other")
	require.Len(t, above, 1)
	assert.Equal(t, "Other", above[0].Key)
	assert.True(t, h("17").Equal(above[0].Hours))
}

func TestBucket_OtherLabelCollision(t *testing.T) {
	in := append(table(), core.Bucket{Key: "Other", Hours: h("8")})
	sortBuckets(in)

	got := Bucket(in, h("6"), "Other")
	assert.Equal(t, []string{"P1", "Other"}, keys(got))
	v, _ := core.Lookup(got, "Other")
	assert.True(t, h("15").Equal(v))
}

func TestBucket_DoesNotMutateInput(t *testing.T) {
	in := table()
	Bucket(in, h("6"), "Other")
	assert.Equal(t, table(), in)
}

func TestSortBuckets(t *testing.T) {
	b := []core.Bucket{
		{Key: "b", Hours: h("1")},
		{Key: "a", Hours: h("1")},
		{Key: "c", Hours: h("3")},
	}
	sortBuckets(b)
	assert.Equal(t, []string{"c", "a", "b"}, keys(b))
}

func ExampleBucket() {
	got := Bucket([]core.Bucket{
		{Key: "P1", Hours: h("10")},
		{Key: "P2", Hours: h("5")},
		{Key: "P3", Hours: h("2")},
	}, h("6"), "Other")
	for _, b := range got {
		fmt.Println(b.Key, b.Hours)
	}
	// Output:
	// P1 10
	// Other 7
}
