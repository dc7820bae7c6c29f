package core

import "github.com/shopspring/decimal"

// Bucket is one key/value pair of an aggregate table, ready for charting.
type Bucket struct {
	Key   string `json:"key"`
	Hours Hours  `json:"hours"`
}

// Total returns the sum of all bucket values.
func Total(buckets []Bucket) Hours {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Hours)
	}
	return total
}

// Lookup returns the hours recorded for key and whether it is present.
func Lookup(buckets []Bucket, key string) (Hours, bool) {
	for _, b := range buckets {
		if b.Key == key {
			return b.Hours, true
		}
	}
	return decimal.Zero, false
}
