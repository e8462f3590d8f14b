package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ligustah/paperharvest/internal/downloader"
	"github.com/ligustah/paperharvest/internal/ledger"
)

// runReport prints the run history, or the papers of a single run.
func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	path := fs.String("ledger", "", "SQLite run ledger path (required)")
	limit := fs.Int("limit", 10, "Number of recent runs to list")
	runID := fs.String("run", "", "Show the papers of this run")
	status := fs.String("status", "", "With -run, only show papers with this status: downloaded, skipped, failed")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: harvest report [options]

List recent runs recorded in the ledger, or the per-paper outcome of one
run with -run.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *path == "" {
		fmt.Fprintln(stderr, "Error: -ledger is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	switch downloader.Status(*status) {
	case "", downloader.StatusDownloaded, downloader.StatusSkipped, downloader.StatusFailed:
	default:
		fmt.Fprintf(stderr, "Error: unknown status %q\n", *status)
		return ExitInvalidArgs
	}

	l, err := ledger.Open(*path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitLedgerError
	}
	defer l.Close()

	ctx := context.Background()
	if *runID != "" {
		return printRun(ctx, l, *runID, downloader.Status(*status))
	}
	return printRuns(ctx, l, *limit)
}

func printRuns(ctx context.Context, l *ledger.Ledger, limit int) int {
	runs, err := l.Runs(ctx, limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitLedgerError
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tRANGE\tPAPERS\tDOWNLOADED\tSKIPPED\tFAILED\tSIZE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.StartDate, r.EndDate,
			r.Papers, r.Downloaded, r.Skipped, r.Failed, formatBytes(r.Bytes))
	}
	tw.Flush()
	return ExitSuccess
}

func printRun(ctx context.Context, l *ledger.Ledger, id string, status downloader.Status) int {
	run, err := l.GetRun(ctx, id)
	if errors.Is(err, ledger.ErrRunNotFound) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitLedgerError
	}

	entries, err := l.Entries(ctx, id, status)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitLedgerError
	}

	fmt.Fprintf(stdout, "Run %s: %s..%s, %d downloaded, %d skipped, %d failed in %s\n",
		run.ID, run.StartDate, run.EndDate, run.Downloaded, run.Skipped, run.Failed,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Second))

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tMONTH\tID\tKEY\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Status, e.Month, e.PaperID, e.Key, e.Error)
	}
	tw.Flush()
	return ExitSuccess
}
