// Package downloader stores the documents of catalog items in parallel.
//
// Each item is written to <YYYY-MM>/<sanitized title>.pdf in a Store. An
// item whose key already exists is skipped without touching the network,
// so re-running a batch against the same destination resumes it.
//
// # Usage
//
//	d := downloader.New(httpClient, store, downloader.Options{
//	    Workers: 10,
//	    Output:  os.Stderr,
//	}, logger)
//
//	report := d.Batch(ctx, items)
//	fmt.Println(report.Downloaded, report.Skipped, report.Failed)
//
// # Worker Pool
//
// Workers receive item indexes from a channel. Every attempt, successful or
// not, advances the batch progress tracker exactly once. A failing item is
// logged and recorded in the Report; it never stops its siblings.
//
// # Name Collisions
//
// Two different items whose titles sanitize to the same key would
// overwrite each other. Within a batch the first item in input order keeps
// the key; later ones fail with ErrNameCollision and are not fetched.
package downloader
