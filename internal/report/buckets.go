package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"engdash/internal/core"
)

// DefaultOtherLabel names the synthetic bucket of small entries.
const DefaultOtherLabel = "Other"

// Bucket keeps entries of table with hours at or above threshold and folds
// the rest into one otherLabel bucket appended at the end. The folded
// bucket is omitted when nothing falls below the threshold. If a kept key
// already equals otherLabel the folded hours are added to it. The total
// is always preserved.
func Bucket(table []core.Bucket, threshold core.Hours, otherLabel string) []core.Bucket {
	out := make([]core.Bucket, 0, len(table)+1)
	rest := decimal.Zero
	folded := 0
	for _, b := range table {
		if b.Hours.GreaterThanOrEqual(threshold) {
			out = append(out, b)
			continue
		}
		rest = rest.Add(b.Hours)
		folded++
	}
	if folded == 0 {
		return out
	}
	for i := range out {
		if out[i].Key == otherLabel {
			out[i].Hours = out[i].Hours.Add(rest)
			return out
		}
	}
	return append(out, core.Bucket{Key: otherLabel, Hours: rest})
}

// groupSum sums durations per key and returns buckets in presentation order.
func groupSum(entries []core.TimeEntry, key func(core.TimeEntry) string) []core.Bucket {
	sums := make(map[string]core.Hours)
	for _, e := range entries {
		k := key(e)
		sums[k] = sums[k].Add(e.Duration)
	}
	out := make([]core.Bucket, 0, len(sums))
	for k, h := range sums {
		out = append(out, core.Bucket{Key: k, Hours: h})
	}
	sortBuckets(out)
	return out
}

// sortBuckets orders by hours descending, then key ascending.
func sortBuckets(b []core.Bucket) {
	sort.Slice(b, func(i, j int) bool {
		if c := b[i].Hours.Cmp(b[j].Hours); c != 0 {
			return c > 0
		}
		return b[i].Key < b[j].Key
	})
}

func dropKey(b []core.Bucket, key string) []core.Bucket {
	out := b[:0]
	for _, x := range b {
		if x.Key != key {
			out = append(out, x)
		}
	}
	return out
}
