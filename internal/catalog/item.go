package catalog

import (
	"sort"
	"time"
)

// Item is one record returned by the catalog.
type Item struct {
	ID        string
	Title     string
	Summary   string
	Published time.Time
	PDFURL    string
}

// Month returns the "YYYY-MM" publication month of the item.
func (i Item) Month() string {
	return i.Published.UTC().Format(monthLayout)
}

// MonthBucket groups items by the month key of the window they were
// fetched for.
type MonthBucket map[string][]Item

// Keys returns the month keys in calendar order.
func (b MonthBucket) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total returns the number of items across all months.
func (b MonthBucket) Total() int {
	n := 0
	for _, items := range b {
		n += len(items)
	}
	return n
}
