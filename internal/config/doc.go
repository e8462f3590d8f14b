// Package config defines configuration for the harvest CLI.
//
// Sources, lowest precedence first:
//   - Defaults (Default)
//   - YAML configuration file (LoadFromFile)
//   - Environment variables with the HARVEST_ prefix, optionally loaded
//     from a .env file (LoadDotEnv, LoadFromEnv)
//   - Command-line flags (Merge)
//
// Dates are YYYY-MM-DD, sizes accept units such as 50MB, and durations use
// Go syntax such as 1s or 2m.
//
// # Example
//
//	start_date: 2022-01-01
//	end_date: 2022-03-31
//	category: cs.*
//	max_per_month: 200
//	fetch_workers: 4
//	download_workers: 10
//	destination: s3://papers?region=us-east-1
//	max_file_size: 50MB
//	ledger: state/ledger.db
//	http:
//	  timeout: 2m
//	  retry:
//	    attempts: 3
//	    backoff: 1s
//	    max_backoff: 30s
//	watch:
//	  cron: "0 3 * * *"
//	  months: 2
package config
