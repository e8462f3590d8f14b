// Package http provides the HTTP client used to fetch document payloads.
//
// This package handles:
//   - Connection pooling shared by all download workers
//   - A per-request timeout so a hung server cannot hold a worker forever
//   - Retry with exponential backoff and jitter for 5xx, 429 and
//     transport errors
//   - Mapping of common client errors to sentinel values
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, err := client.Get(ctx, "https://arxiv.org/pdf/2201.00001")
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
//	// resp.ContentLength is the declared size, or -1
package http
