// Package catalog partitions date ranges into month windows and fetches
// the catalog items of each window.
//
// # Windows
//
// Months splits an inclusive date range into calendar-month windows:
//
//	windows, _ := catalog.Months(
//	    time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC),
//	    time.Date(2022, 3, 10, 0, 0, 0, 0, time.UTC),
//	    200,
//	)
//	// 2022-01 [2022-01-15, 2022-01-31]
//	// 2022-02 [2022-02-01, 2022-02-28]
//	// 2022-03 [2022-03-01, 2022-03-10]
//
// # Fetching
//
// A Fetcher turns a window into a submittedDate query, retries failed
// searches with a fixed delay, and degrades a window that keeps failing to
// an empty result instead of returning an error.
package catalog
