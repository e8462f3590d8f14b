// Package progress provides progress tracking for the fetch and download
// stages.
//
// A Tracker counts finished units with atomic increments so any number of
// workers can report concurrently. Display is optional and runs in its own
// goroutine, reading the counters on a ticker.
//
// # Usage
//
//	tracker := progress.NewTracker(progress.Options{
//	    Label:  "Downloading papers",
//	    Unit:   "paper",
//	    Total:  len(items),
//	    Output: os.Stderr,
//	})
//
//	tracker.Start()
//	defer tracker.Close()
//
//	// From any worker
//	tracker.Advance()
//
// # Output Format
//
//	[harvest] Downloading papers: 2400 papers
//	[harvest] Downloading papers: 1130/2400 (47.1%) | 3 failed | 1.13 GB | ETA: 4m 12s
package progress
