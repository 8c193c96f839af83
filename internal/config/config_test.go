package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:8000/api/" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.API.Timeout)
	}
	if cfg.Session.Backend != "file" || !strings.HasSuffix(cfg.Session.Path, filepath.Join(".socialhub", "session.json")) {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Watch.Workers != 2 || cfg.Watch.Interval != 30*time.Second {
		t.Fatalf("unexpected watch config %+v", cfg.Watch)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "socialhub.yaml")
	contents := `
api:
  base_url: https://social.example.com/api/
  rate_limit:
    requests: 10
session:
  backend: redis
redis:
  addr: localhost:6379
log_level: debug
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SOCIALHUB_API_TIMEOUT", "5s")
	t.Setenv("SOCIALHUB_SESSION_PROFILE", "work")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://social.example.com/api/" {
		t.Fatalf("expected file value got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Fatalf("expected env override got %v", cfg.API.Timeout)
	}
	if cfg.Session.Profile != "work" || cfg.Session.Backend != "redis" {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.API.RateLimit.Requests != 10 || cfg.API.RateLimit.Burst != 5 {
		t.Fatalf("unexpected rate limit %+v", cfg.API.RateLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "bad backend",
			env:  map[string]string{"SOCIALHUB_SESSION_BACKEND": "floppy"},
			want: "Session.Backend must be one of",
		},
		{
			name: "redis without addr",
			env:  map[string]string{"SOCIALHUB_SESSION_BACKEND": "redis"},
			want: "redis.addr is required",
		},
		{
			name: "postgres without url",
			env:  map[string]string{"SOCIALHUB_SESSION_BACKEND": "postgres"},
			want: "database_url is required",
		},
		{
			name: "s3 without bucket",
			env:  map[string]string{"SOCIALHUB_SESSION_BACKEND": "s3"},
			want: "object_store.bucket is required",
		},
		{
			name: "relative base url",
			env:  map[string]string{"SOCIALHUB_API_BASE_URL": "not a url"},
			want: "API.BaseURL must be a valid URL",
		},
		{
			name: "log level",
			env:  map[string]string{"SOCIALHUB_LOG_LEVEL": "loud"},
			want: "LogLevel must be one of",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("HOME", t.TempDir())
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
