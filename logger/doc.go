// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package logger configures the process-wide slog logger.

Records always go to the console as text. With LOG_FILE set they are also
written as JSON to a lumberjack-rotated file (10 MB, 3 backups, 28 days,
compressed):

	closer, err := logger.Configure(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}, os.Stderr)
	defer closer.Close()

Call sites use slog directly with lower-case messages and key/value pairs.
*/
package logger
