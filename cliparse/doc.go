// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first (godotenv). Variables
already present in the environment are not overwritten by it.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: connection string (required)
  - DatabaseType: postgres or sqlite (default: postgres)
  - AdminKey: shared key for admin routes (required)
  - BallotMasterKey: wraps per-record ballot keys, at least 32 bytes (required)
  - BlindSecret: keys the blinded voter ID (required)
  - ReconcileInterval: status reconcile cadence (default: 1m, 0 disables)
  - LogLevel, LogFile: see package logger

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	-reconcile    Reconcile interval
	-log-level    Log level
	-log-file     Rotating log file

# Environment Variables

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	RECONCILE_INTERVAL → -reconcile
	LOG_LEVEL          → -log-level
	LOG_FILE           → -log-file
	ADMIN_KEY, BALLOT_MASTER_KEY, BLIND_SECRET (env only)

CLI flags take precedence over environment variables. Secrets have no flag
so they never show up in process listings.
*/
package cliparse
