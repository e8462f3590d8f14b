package main

import (
	"flag"
	"fmt"

	"github.com/ligustah/paperharvest/internal/catalog"
)

// runWindows prints the query windows of a range without contacting the
// catalog.
func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(stderr)

	start := fs.String("start", "", "First day of the range, YYYY-MM-DD (required)")
	end := fs.String("end", "", "Last day of the range, YYYY-MM-DD (required)")
	maxPerMonth := fs.Int("max-per-month", 200, "Max papers per month")
	category := fs.String("category", "cs.*", "arXiv category filter")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: harvest windows [options]

Print the monthly windows and catalog queries a run would issue.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *start == "" || *end == "" {
		fmt.Fprintln(stderr, "Error: -start and -end are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	from, err := catalog.ParseDate(*start)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	to, err := catalog.ParseDate(*end)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	windows, err := catalog.Months(from, to, *maxPerMonth)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	for _, w := range windows {
		fmt.Fprintf(stdout, "%s  max %d  %s\n", w, w.Limit, catalog.BuildQuery(*category, w))
	}
	return ExitSuccess
}
