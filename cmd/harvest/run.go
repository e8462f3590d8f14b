package main

import (
	"flag"
	"fmt"

	"github.com/ligustah/paperharvest/internal/progress"
)

// runHarvest runs the pipeline once over a date range.
func runHarvest(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cf configFlags
	cf.register(fs, true)

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: harvest run [options]

Fetch up to -max-per-month papers for every calendar month between -start
and -end, then download their PDFs to -dest as YYYY-MM/<title>.pdf.
Papers already present are skipped, so an interrupted run can simply be
repeated.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := cf.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if err := cfg.ValidateRange(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	log := newLogger(cfg)
	defer log.Close()

	ctx, cancel := signalContext()
	defer cancel()

	p, err := openPipeline(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	defer p.Close()

	result, err := p.harvester.Run(ctx, harvestOptions(cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	printSummary(stdout, p.store, result)

	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(stderr, "[harvest] Run interrupted, run again to resume")
		return ExitInterrupted
	case result.Report.Failed > 0:
		return ExitDownloadsFailed
	}
	return ExitSuccess
}

func formatBytes(b int64) string {
	return progress.FormatBytes(b)
}
