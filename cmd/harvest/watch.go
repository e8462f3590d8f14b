package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/ligustah/paperharvest/internal/catalog"
	"github.com/ligustah/paperharvest/internal/config"
	"github.com/ligustah/paperharvest/internal/scheduler"
)

const watchTaskID = "harvest"

// runWatch harvests the trailing months on a cron schedule until
// interrupted.
func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cf configFlags
	cf.register(fs, false)
	cron := fs.String("cron", "", `Cron schedule (default "0 3 * * *")`)
	months := fs.Int("months", 0, "Number of trailing months to harvest, including the current one (default 1)")
	runOnStart := fs.Bool("run-on-start", false, "Harvest immediately, then on schedule")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: harvest watch [options]

Run the harvest on a cron schedule over the trailing -months months, up to
today. A run never overlaps the previous one.

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
	cfg = cfg.Merge(config.Config{Watch: config.WatchConfig{
		Cron:       *cron,
		Months:     *months,
		RunOnStart: *runOnStart,
	}})
	if cfg.Watch.Months <= 0 {
		fmt.Fprintln(stderr, "Error: -months must be positive")
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

	sched, err := scheduler.New(ctx, log.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	err = sched.RegisterTask(scheduler.TaskConfig{
		ID:          watchTaskID,
		Name:        "Harvest trailing months",
		Description: fmt.Sprintf("Harvest %s for the last %d months", cfg.Category, cfg.Watch.Months),
		Cron:        cfg.Watch.Cron,
		RunOnStart:  cfg.Watch.RunOnStart,
		Func: func(ctx context.Context) error {
			return watchOnce(ctx, p, cfg, time.Now())
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	sched.Start()
	for _, task := range sched.ListTasks() {
		if task.NextRun != nil {
			log.Info().Str("task", task.ID).Time("nextRun", *task.NextRun).Msg("Watching")
		}
	}

	<-ctx.Done()
	if err := sched.Stop(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	return ExitSuccess
}

// watchOnce harvests the trailing months ending at now.
func watchOnce(ctx context.Context, p *pipeline, cfg config.Config, now time.Time) error {
	cfg.StartDate, cfg.EndDate = trailingRange(now, cfg.Watch.Months)

	result, err := p.harvester.Run(ctx, harvestOptions(cfg))
	if err != nil {
		return err
	}
	printSummary(stdout, p.store, result)

	if result.Report.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", result.Report.Failed, len(result.Report.Results))
	}
	return nil
}

// trailingRange returns the range from the first day of the month n-1
// months before now through now.
func trailingRange(now time.Time, n int) (time.Time, time.Time) {
	end := catalog.Day(now)
	start := time.Date(end.Year(), end.Month()-time.Month(n-1), 1, 0, 0, 0, 0, time.UTC)
	return start, end
}
