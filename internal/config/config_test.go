package config

import (
	"testing"
	"time"

	"github.com/shopmate/sentinel/params"
)

// TestSanitizeDefaults checks that an empty config is filled with the
// documented defaults.
func TestSanitizeDefaults(t *testing.T) {
	var cfg Config
	if err := cfg.Sanitize(); err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if cfg.AppName != "sentinel" {
		t.Errorf("wrong app name: %s", cfg.AppName)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("wrong listen addr: %s", cfg.ListenAddr)
	}
	if cfg.Audit.LogLevel != "LOW" {
		t.Errorf("wrong audit log level: %s", cfg.Audit.LogLevel)
	}
	if cfg.Audit.BatchSize != params.AuditDefaultBatchSize {
		t.Errorf("wrong batch size: %d", cfg.Audit.BatchSize)
	}
	if cfg.Audit.FlushInterval != params.AuditDefaultFlushInterval {
		t.Errorf("wrong flush interval: %v", cfg.Audit.FlushInterval)
	}
	if cfg.Secrets.Environment != DefaultEnvironment {
		t.Errorf("wrong environment: %s", cfg.Secrets.Environment)
	}
	if cfg.Secrets.DefaultRotationDays != params.SecretsDefaultRotationDays {
		t.Errorf("wrong rotation days: %d", cfg.Secrets.DefaultRotationDays)
	}
}

// TestSanitizeRetention checks that a negative retention window is
// normalized to "keep forever" and a positive one survives untouched.
func TestSanitizeRetention(t *testing.T) {
	cfg := Config{Audit: AuditConfig{RetentionDays: -7}}
	if err := cfg.Sanitize(); err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if cfg.Audit.RetentionDays != 0 {
		t.Errorf("negative retention not normalized: %d", cfg.Audit.RetentionDays)
	}

	cfg = Config{Audit: AuditConfig{RetentionDays: 90, FlushInterval: time.Second}}
	if err := cfg.Sanitize(); err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if cfg.Audit.RetentionDays != 90 {
		t.Errorf("retention changed: %d", cfg.Audit.RetentionDays)
	}
	if cfg.Audit.FlushInterval != time.Second {
		t.Errorf("flush interval changed: %v", cfg.Audit.FlushInterval)
	}
}
