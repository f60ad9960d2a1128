package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

var envMu sync.Mutex

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
	t.Setenv("GATEWAY_URL", "https://sms.example.com/send")
	t.Setenv("GATEWAY_USERNAME", "school")
	t.Setenv("GATEWAY_PASSWORD", "hunter2")
	t.Setenv("GATEWAY_API_KEY", "key-123")
	t.Setenv("CREDENTIAL_DOMAIN", "school.edu.zm")
}

func TestLoadAll_HappyPath_NoRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	setRequiredEnv(t)

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Database.PostgresURL != "postgres://u:p@localhost:5432/db?sslmode=disable" {
		t.Fatalf("unexpected PostgresURL: %q", cfg.Database.PostgresURL)
	}
	if cfg.Gateway.Endpoint != "https://sms.example.com/send" {
		t.Fatalf("unexpected Gateway.Endpoint: %q", cfg.Gateway.Endpoint)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected Server.Address default: %q", cfg.Server.Address)
	}
	if cfg.Gateway.CountryCode != "260" {
		t.Fatalf("unexpected CountryCode default: %q", cfg.Gateway.CountryCode)
	}
	if cfg.Broadcast.BatchSize != 50 {
		t.Fatalf("unexpected BatchSize default: %d", cfg.Broadcast.BatchSize)
	}
	if cfg.Broadcast.StallAfter != 600*time.Second {
		t.Fatalf("unexpected StallAfter default: %v", cfg.Broadcast.StallAfter)
	}
	if cfg.Scheduler.Interval != 2*time.Second {
		t.Fatalf("unexpected Scheduler.Interval default: %v", cfg.Scheduler.Interval)
	}
	if cfg.Credential.Domain != "school.edu.zm" {
		t.Fatalf("unexpected Credential.Domain: %q", cfg.Credential.Domain)
	}

	if cfg.Redis.Enabled {
		t.Fatalf("expected Redis disabled when REDIS_ADDR not set")
	}
}

func TestLoadAll_HappyPath_WithRedis(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)
	setRequiredEnv(t)

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TTL_SECONDS", "42")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Fatalf("expected Redis enabled")
	}
	if cfg.Redis.Address != "localhost:6379" {
		t.Fatalf("unexpected Redis.Address: %q", cfg.Redis.Address)
	}
	if cfg.Redis.Password != "secret" {
		t.Fatalf("unexpected Redis.Password: %q", cfg.Redis.Password)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("unexpected Redis.DB: %d", cfg.Redis.DB)
	}
	if cfg.Redis.TTL != 42*time.Second {
		t.Fatalf("unexpected Redis.TTL: %v", cfg.Redis.TTL)
	}
}

func TestLoadAll_RequiredEnvMissing(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	required := []string{
		"POSTGRES_URL",
		"GATEWAY_URL",
		"GATEWAY_USERNAME",
		"GATEWAY_PASSWORD",
		"GATEWAY_API_KEY",
		"CREDENTIAL_DOMAIN",
	}

	for _, key := range required {
		key := key
		t.Run("missing "+key, func(t *testing.T) {
			clearTestEnv(t)
			setRequiredEnv(t)
			_ = os.Unsetenv(key)

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error mentioning %s, got: %v", key, err)
			}
		})
	}
}

func TestLoadAll_InvalidInts(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"invalid BROADCAST_BATCH_SIZE", "BROADCAST_BATCH_SIZE", "x"},
		{"invalid SCHED_INTERVAL_SECONDS", "SCHED_INTERVAL_SECONDS", "nope"},
		{"invalid GATEWAY_SENDS_PER_SEC", "GATEWAY_SENDS_PER_SEC", "abc"},
		{"invalid BROADCAST_COST_PER_SMS", "BROADCAST_COST_PER_SMS", "cheap"},
		{"invalid REDIS_DB", "REDIS_DB", "bad"},
		{"invalid REDIS_TTL_SECONDS", "REDIS_TTL_SECONDS", "bad"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)
			setRequiredEnv(t)

			// Enable redis only for redis-related invalid values.
			if strings.HasPrefix(tc.key, "REDIS_") {
				t.Setenv("REDIS_ADDR", "localhost:6379")
			}

			t.Setenv(tc.key, tc.val)

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.key, err)
			}
		})
	}
}

func TestLoadAll_ValidationFailures(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"batch size <= 0", "BROADCAST_BATCH_SIZE", "0", "BROADCAST_BATCH_SIZE"},
		{"interval <= 0", "SCHED_INTERVAL_SECONDS", "0", "SCHED_INTERVAL_SECONDS"},
		{"country code wrong length", "GATEWAY_COUNTRY_CODE", "26", "GATEWAY_COUNTRY_CODE"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := LoadAll()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.want, err)
			}
		})
	}
}

func TestRequireEnv(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	_, err := requireEnv("MISSING_KEY")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	t.Setenv("FOO", "bar")
	v, err := requireEnv("FOO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "bar" {
		t.Fatalf("expected %q, got %q", "bar", v)
	}
}

func TestGetEnv(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	if got := getEnv("NOPE", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("A", "x")
	if got := getEnv("A", "default"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	envMu.Lock()
	defer envMu.Unlock()

	clearTestEnv(t)

	got, err := getEnvInt("MISSING", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}

	t.Setenv("N", "123")
	got, err = getEnvInt("N", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 123 {
		t.Fatalf("expected 123, got %d", got)
	}

	t.Setenv("BAD", "abc")
	_, err = getEnvInt("BAD", 7)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "BAD") {
		t.Fatalf("expected error mentioning BAD, got: %v", err)
	}
}

func TestJoinErrors(t *testing.T) {
	if err := joinErrors(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	e1 := errors.New("one")
	e2 := errors.New("two")
	err := joinErrors([]error{e1, nil, e2})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	if !errors.Is(err, e1) {
		t.Fatalf("expected errors.Is(err, e1) to be true")
	}
	if !errors.Is(err, e2) {
		t.Fatalf("expected errors.Is(err, e2) to be true")
	}
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"POSTGRES_URL",
		"GATEWAY_URL",
		"GATEWAY_USERNAME",
		"GATEWAY_PASSWORD",
		"GATEWAY_SHORTCODE",
		"GATEWAY_SENDER_ID",
		"GATEWAY_API_KEY",
		"GATEWAY_COUNTRY_CODE",
		"GATEWAY_SENDS_PER_SEC",
		"BROADCAST_BATCH_SIZE",
		"BROADCAST_COST_PER_SMS",
		"BROADCAST_STALL_AFTER_SECONDS",
		"CREDENTIAL_DOMAIN",
		"SCHED_INTERVAL_SECONDS",
		"SERVER_ADDRESS",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"REDIS_TTL_SECONDS",
		"FOO",
		"A",
		"N",
		"BAD",
	}
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}
