package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageDriver != StorageDriverSQLite {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.StorageDriver)
	}
	if cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.BadgerGCInterval != 5*time.Minute {
		t.Fatalf("unexpected gc interval %v", cfg.BadgerGCInterval)
	}
	if cfg.UserID != defaultUserID {
		t.Fatalf("unexpected user id %q", cfg.UserID)
	}
	if cfg.NotificationQueue != defaultNotificationQueue {
		t.Fatalf("unexpected queue size %d", cfg.NotificationQueue)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("TASTELOG_STORAGE_DRIVER", "Badger")
	t.Setenv("TASTELOG_BADGER_PATH", "/tmp/tastelog-badger")
	t.Setenv("TASTELOG_USER_ID", "u-42")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageDriver != StorageDriverBadger {
		t.Fatalf("expected badger driver, got %q", cfg.StorageDriver)
	}
	if cfg.BadgerPath != "/tmp/tastelog-badger" {
		t.Fatalf("unexpected badger path %q", cfg.BadgerPath)
	}
	if cfg.UserID != "u-42" {
		t.Fatalf("unexpected user id %q", cfg.UserID)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		message string
	}{
		{name: "unknown-driver", key: "storage.driver", value: "postgres", message: "not supported"},
		{name: "empty-database-path", key: "database.path", value: " ", message: "database.path"},
		{name: "empty-user", key: "user.id", value: "", message: "user.id"},
		{name: "empty-username", key: "user.username", value: " ", message: "user.username"},
		{name: "zero-queue", key: "notifications.queue_size", value: 0, message: "queue_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set(tt.key, tt.value)
			_, err := Load(configViper)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Fatalf("expected error to mention %q, got %v", tt.message, err)
			}
		})
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedOrigins) != len(defaultAllowedOrigins) || cfg.AllowedOrigins[0] != defaultAllowedOrigins[0] {
		t.Fatalf("expected default origins, got %#v", cfg.AllowedOrigins)
	}

	t.Setenv("TASTELOG_HTTP_ALLOWED_ORIGINS", "https://app.tastelog.test/, http://localhost:8081")
	cfg, err = Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://app.tastelog.test" || cfg.AllowedOrigins[1] != "http://localhost:8081" {
		t.Fatalf("unexpected origins from environment %#v", cfg.AllowedOrigins)
	}

	t.Setenv("TASTELOG_HTTP_ALLOWED_ORIGINS", "evil.example")
	if _, err := Load(NewViper()); err == nil || !strings.Contains(err.Error(), "http.allowed_origins") {
		t.Fatalf("expected scheme validation error, got %v", err)
	}
}
