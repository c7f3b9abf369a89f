// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server is the configuration of the registration API.
type Server struct {
	Port        string `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"premierdelan-registrations"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev      bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
	// DatabaseURL selects the storage backend by scheme: postgres:// or kvdb://.
	// Empty means postgres built from the DB_* variables.
	DatabaseURL string   `env:"DATABASE_URL"`
	Postgres    Postgres `envPrefix:"DB_"`
	JWTSecret   string   `env:"JWT_SECRET"`
	StaticDir   string   `env:"STATIC_DIR" envDefault:"./web"`
	OTLPURL     string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Postgres holds connection settings, one variable per libpq keyword.
type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"NAME" envDefault:"eventbooking"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (c Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Storage describes the backend chosen by DatabaseURL.
type Storage struct {
	Scheme string
	// DSN is the postgres connection string or the bbolt file path.
	DSN string
}

// Storage resolves the configured backend.
func (s Server) Storage() (Storage, error) {
	if strings.TrimSpace(s.DatabaseURL) == "" {
		return Storage{Scheme: "postgres", DSN: s.Postgres.DSN()}, nil
	}
	u, err := url.Parse(s.DatabaseURL)
	if err != nil {
		return Storage{}, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return Storage{Scheme: "postgres", DSN: s.DatabaseURL}, nil
	case "kvdb":
		path := u.Host + u.Path
		if path == "" {
			return Storage{}, errors.New("kvdb url needs a file path, e.g. kvdb://data/registrations.db")
		}
		return Storage{Scheme: "kvdb", DSN: path}, nil
	default:
		return Storage{}, fmt.Errorf("unknown storage backend %q", u.Scheme)
	}
}

// CLI is the configuration of regctl.
type CLI struct {
	APIURL    string `env:"REGCTL_API_URL" envDefault:"http://localhost:8080"`
	StatePath string `env:"REGCTL_STATE" envDefault:".regctl.db"`
	LogLevel  string `env:"REGCTL_LOG_LEVEL" envDefault:"warn"`
	JWTSecret string `env:"JWT_SECRET"`
}

// LoadDotEnv loads KEY=VALUE pairs from files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer reads .env then the environment into a Server config.
func LoadServer() (Server, error) {
	var cfg Server
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
