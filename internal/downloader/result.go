package downloader

import "github.com/ligustah/paperharvest/internal/catalog"

// Status is the outcome of one download attempt.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Result records one download attempt.
type Result struct {
	Item   catalog.Item
	Key    string
	Status Status
	Bytes  int64
	Err    error
}

// Success reports whether the item is present in the store afterwards.
func (r Result) Success() bool {
	return r.Status == StatusDownloaded || r.Status == StatusSkipped
}

// Report aggregates the results of a batch.
type Report struct {
	Results    []Result
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

func newReport(results []Result) *Report {
	r := &Report{Results: results}
	for _, res := range results {
		switch res.Status {
		case StatusDownloaded:
			r.Downloaded++
		case StatusSkipped:
			r.Skipped++
		default:
			r.Failed++
		}
		r.Bytes += res.Bytes
	}
	return r
}

// Failures returns the failed results in input order.
func (r *Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Success() {
			failed = append(failed, res)
		}
	}
	return failed
}
