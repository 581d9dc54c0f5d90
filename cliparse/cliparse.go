package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MinMasterKeyLen matches the sealer's minimum master key size
const MinMasterKeyLen = 32

type Config struct {
	Port              int
	DatabaseURL       string
	DatabaseType      string
	AdminKey          string
	BallotMasterKey   string
	BlindSecret       string
	ReconcileInterval time.Duration
	LogLevel          string
	LogFile           string
}

// ParseFlags validates flags and sets port number.
// A .env file in the working directory is loaded first; real environment
// variables win over it, and flags win over both.
func ParseFlags(args []string) (Config, error) {
	// Missing .env is fine; anything else is a broken file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	reconcile := ""

	fs := flag.NewFlagSet("campus-vote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&reconcile, "reconcile", "", "Status reconcile interval, 0 disables (e.g. 1m)")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Rotating log file path")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "postgres"
		}
	}
	if cfg.DatabaseType != "postgres" && cfg.DatabaseType != "sqlite" {
		return Config{}, fmt.Errorf("invalid database type %q (want sqlite or postgres)", cfg.DatabaseType)
	}

	if reconcile == "" {
		reconcile = os.Getenv("RECONCILE_INTERVAL")
	}
	if reconcile == "" {
		cfg.ReconcileInterval = time.Minute
	} else {
		d, err := time.ParseDuration(reconcile)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid reconcile interval %q", reconcile)
		}
		cfg.ReconcileInterval = d
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("LOG_FILE")
	}

	// Secrets - env only, MUST be provided
	cfg.AdminKey = os.Getenv("ADMIN_KEY")
	if cfg.AdminKey == "" {
		return Config{}, errors.New("ADMIN_KEY required")
	}

	cfg.BallotMasterKey = os.Getenv("BALLOT_MASTER_KEY")
	if cfg.BallotMasterKey == "" {
		return Config{}, errors.New("BALLOT_MASTER_KEY required")
	}
	if len(cfg.BallotMasterKey) < MinMasterKeyLen {
		return Config{}, fmt.Errorf("BALLOT_MASTER_KEY must be at least %d bytes", MinMasterKeyLen)
	}

	cfg.BlindSecret = os.Getenv("BLIND_SECRET")
	if cfg.BlindSecret == "" {
		return Config{}, errors.New("BLIND_SECRET required")
	}

	return cfg, nil
}
