package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration for the reminder service.
type Server struct {
	Addr        string
	DatabaseURL string
	Environment string

	// MaintenanceInterval is how often the background worker refreshes
	// communication reminders and garbage-collects closed ones.
	MaintenanceInterval time.Duration

	// CleanupAgeDays is the age threshold (against scheduled_for) beyond
	// which sent/dismissed reminders are hard-deleted.
	CleanupAgeDays int

	// BatchConcurrency bounds parallel per-contact generation work.
	BatchConcurrency int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("KINSHIP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := os.Getenv("KINSHIP_ENV")
	if env == "" {
		env = "development"
	}

	interval := 6 * time.Hour
	if raw := os.Getenv("KINSHIP_MAINTENANCE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}

	cleanupAge := 30
	if raw := os.Getenv("KINSHIP_CLEANUP_AGE_DAYS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cleanupAge = n
		}
	}

	concurrency := 4
	if raw := os.Getenv("KINSHIP_BATCH_CONCURRENCY"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			concurrency = n
		}
	}

	return Server{
		Addr:                addr,
		DatabaseURL:         os.Getenv("KINSHIP_DATABASE_URL"),
		Environment:         env,
		MaintenanceInterval: interval,
		CleanupAgeDays:      cleanupAge,
		BatchConcurrency:    concurrency,
	}
}
