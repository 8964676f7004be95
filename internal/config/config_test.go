package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Rooms.MaxParticipants != 0 {
		t.Fatalf("expected unlimited participants by default, got %d", cfg.Rooms.MaxParticipants)
	}
	if !cfg.Rooms.AllowAdminObservers {
		t.Fatal("expected admin observers to be allowed by default")
	}
	if len(cfg.WebRTC.STUNServers) != 2 {
		t.Fatalf("expected two default STUN servers, got %v", cfg.WebRTC.STUNServers)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("ROOM_MAX_PARTICIPANTS", "2")
	t.Setenv("STUN_SERVERS", "stun:a:1, stun:b:2 ,")
	t.Setenv("REMINDER_LEAD_TIME", "1h")
	t.Setenv("ALLOW_ADMIN_OBSERVERS", "false")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SMTP_FROM", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.Rooms.MaxParticipants != 2 {
		t.Fatalf("expected 2 participants, got %d", cfg.Rooms.MaxParticipants)
	}
	if got := cfg.WebRTC.STUNServers; len(got) != 2 || got[0] != "stun:a:1" || got[1] != "stun:b:2" {
		t.Fatalf("unexpected STUN servers %v", got)
	}
	if cfg.Reminder.LeadTime != time.Hour {
		t.Fatalf("expected 1h lead time, got %s", cfg.Reminder.LeadTime)
	}
	if cfg.Rooms.AllowAdminObservers {
		t.Fatal("expected admin observers to be disabled")
	}
	if cfg.SMTP.From != "mailer@example.com" {
		t.Fatalf("expected SMTP from to fall back to user, got %q", cfg.SMTP.From)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "7070"
redis:
  addr: "redis:6379"
rooms:
  max_participants: 3
  shards: 4
  send_buffer_size: 32
reminder:
  enabled: true
  schedule: "0 * * * *"
  lead_time: 45m
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected port from file, got %s", cfg.Port)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("expected redis addr from file, got %s", cfg.Redis.Addr)
	}
	if cfg.Rooms.MaxParticipants != 3 || cfg.Rooms.Shards != 4 {
		t.Fatalf("unexpected rooms config %+v", cfg.Rooms)
	}
	if cfg.Reminder.LeadTime != 45*time.Minute {
		t.Fatalf("expected 45m lead time, got %s", cfg.Reminder.LeadTime)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }},
		{name: "negative participants", mutate: func(c *Config) { c.Rooms.MaxParticipants = -1 }},
		{name: "zero shards", mutate: func(c *Config) { c.Rooms.Shards = 0 }},
		{name: "zero send buffer", mutate: func(c *Config) { c.Rooms.SendBufferSize = 0 }},
		{name: "zero event buffer", mutate: func(c *Config) { c.Events.BufferSize = 0 }},
		{name: "reminder without schedule", mutate: func(c *Config) { c.Reminder.Schedule = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := validateConfig(Default()); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := Database{URL: "postgres://u:p@h:5432/db"}
	if d.DSN() != "postgres://u:p@h:5432/db" {
		t.Fatalf("expected explicit URL, got %s", d.DSN())
	}

	d = Default().Database
	want := "host=localhost user=postgres password=postgres dbname=postgres port=5432 sslmode=disable"
	if d.DSN() != want {
		t.Fatalf("expected %q, got %q", want, d.DSN())
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("UNIT_TEST_ENV", "value")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %s", got)
	}

	t.Setenv("UNIT_TEST_ENV", "")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback value, got %s", got)
	}
}
