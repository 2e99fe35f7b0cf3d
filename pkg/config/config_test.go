package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "DB_HOST", "DB_NAME", "JWT_EXPIRATION_HOURS",
		"REPAIR_POLL_INTERVAL_SECONDS", "REPAIR_BATCH_SIZE", "REPAIR_MAX_RETRIES",
		"CACHE_NUM_COUNTERS", "CACHE_MAX_COST", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.DBName != "fintrack" {
		t.Errorf("db name = %q, want fintrack", cfg.Database.DBName)
	}
	if cfg.JWT.Expiration != 24*time.Hour {
		t.Errorf("jwt expiration = %v, want 24h", cfg.JWT.Expiration)
	}
	if cfg.Repair.PollInterval != 30*time.Second {
		t.Errorf("repair poll = %v, want 30s", cfg.Repair.PollInterval)
	}
	if cfg.Repair.BatchSize != 20 || cfg.Repair.MaxRetries != 5 {
		t.Errorf("repair batch/retries = %d/%d, want 20/5", cfg.Repair.BatchSize, cfg.Repair.MaxRetries)
	}
	if cfg.Cache.NumCounters != 10000 || cfg.Cache.MaxCost != 10000 {
		t.Errorf("cache = %d/%d, want 10000/10000", cfg.Cache.NumCounters, cfg.Cache.MaxCost)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logger.Level)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9099")
	t.Setenv("DB_NAME", "fintrack_test")
	t.Setenv("REPAIR_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("REPAIR_BATCH_SIZE", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9099" {
		t.Errorf("port = %q, want override 9099", cfg.Server.Port)
	}
	if cfg.Database.DBName != "fintrack_test" {
		t.Errorf("db name = %q, want override", cfg.Database.DBName)
	}
	if cfg.Repair.PollInterval != 5*time.Second {
		t.Errorf("repair poll = %v, want 5s", cfg.Repair.PollInterval)
	}
	if cfg.Repair.BatchSize != 3 {
		t.Errorf("repair batch = %d, want 3", cfg.Repair.BatchSize)
	}
}
