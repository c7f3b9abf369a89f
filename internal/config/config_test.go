package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseEnvDefaults(t *testing.T) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Postgres.Host != "localhost" || cfg.Postgres.DBName != "eventbooking" {
		t.Fatalf("unexpected postgres defaults: %+v", cfg.Postgres)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg Server
	t.Setenv("LOG_DEVELOPMENT", "not-a-bool")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestPostgresPrefix(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "premier")

	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	dsn := cfg.Postgres.DSN()
	if !strings.Contains(dsn, "host=db.internal") || !strings.Contains(dsn, "dbname=premier") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestStorage(t *testing.T) {
	tt := []struct {
		name    string
		url     string
		scheme  string
		dsn     string
		wantErr bool
	}{
		{name: "default postgres", url: "", scheme: "postgres", dsn: Postgres{}.DSN()},
		{name: "postgres url", url: "postgres://u:p@h/db", scheme: "postgres", dsn: "postgres://u:p@h/db"},
		{name: "kvdb relative", url: "kvdb://testdata/reg.db", scheme: "kvdb", dsn: "testdata/reg.db"},
		{name: "kvdb empty path", url: "kvdb://", wantErr: true},
		{name: "unknown", url: "mysql://h/db", wantErr: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Server{DatabaseURL: tc.url}.Storage()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Scheme != tc.scheme || got.DSN != tc.dsn {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("REGCTL_API_URL=http://api.test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REGCTL_API_URL", "")
	os.Unsetenv("REGCTL_API_URL")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	var cfg CLI
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.APIURL != "http://api.test" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
}
