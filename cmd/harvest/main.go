package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitCatalogError    = 3
	ExitStorageError    = 5
	ExitLedgerError     = 6
	ExitInterrupted     = 7
	ExitDownloadsFailed = 8
)

// Replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		return runHarvest(cmdArgs)
	case "windows":
		return runWindows(cmdArgs)
	case "report":
		return runReport(cmdArgs)
	case "watch":
		return runWatch(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: harvest <command> [options]

Commands:
  run       Fetch papers month by month over a date range and download their PDFs
  windows   Print the monthly query windows for a date range without fetching
  report    List recorded runs, or the papers of one run, from the ledger
  watch     Harvest the trailing months on a cron schedule

Run 'harvest <command> -h' for command-specific help.`)
}
