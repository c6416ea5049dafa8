package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default sync interval between polling passes.
const DefaultSyncInterval = 300 * time.Second

// Settings holds the full process configuration, read from the
// environment (optionally seeded from a .env file).
type Settings struct {
	Server     ServerSettings
	Database   DatabaseSettings
	Jellyfin   RemoteSettings
	Jellyseerr RemoteSettings
	TMDB       TMDBSettings
	Sync       SyncSettings
	Log        LogSettings
}

type ServerSettings struct {
	Host string
	Port int
}

// DatabaseSettings selects the store engine. When User and Name are
// set the process connects to Postgres at Host; otherwise it falls
// back to a local SQLite file at Path.
type DatabaseSettings struct {
	Host     string
	User     string
	Password string
	Name     string
	Path     string
}

// UsePostgres reports whether Postgres credentials were supplied.
func (d DatabaseSettings) UsePostgres() bool {
	return d.User != "" && d.Name != ""
}

// PostgresDSN builds the pgx connection string.
func (d DatabaseSettings) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s", d.User, d.Password, d.Host, d.Name)
}

// RemoteSettings is one upstream base URL + API key pair.
type RemoteSettings struct {
	URL    string
	APIKey string
}

type TMDBSettings struct {
	APIKey string
}

type SyncSettings struct {
	Interval time.Duration
}

type LogSettings struct {
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Load reads settings from the environment. A .env file in the working
// directory is applied first when present; real environment variables
// win over file values.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	s := &Settings{
		Server: ServerSettings{
			Host: envDefault("STREAMLENS_HOST", "0.0.0.0"),
			Port: envInt("STREAMLENS_PORT", 37192),
		},
		Database: DatabaseSettings{
			Host:     envDefault("DATABASE_HOST", "localhost"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			Path:     envDefault("STREAMLENS_DATABASE_PATH", "data/streamlens.db"),
		},
		Jellyfin: RemoteSettings{
			URL:    strings.TrimRight(os.Getenv("JELLYFIN_URL"), "/"),
			APIKey: os.Getenv("JELLYFIN_API_KEY"),
		},
		Jellyseerr: RemoteSettings{
			URL:    strings.TrimRight(os.Getenv("JELLYSEERR_URL"), "/"),
			APIKey: os.Getenv("JELLYSEERR_API_KEY"),
		},
		TMDB: TMDBSettings{
			APIKey: os.Getenv("TMDB_API_KEY"),
		},
		Sync: SyncSettings{
			Interval: time.Duration(envInt("SYNC_INTERVAL_SECONDS", 300)) * time.Second,
		},
		Log: LogSettings{
			File:       os.Getenv("STREAMLENS_LOG_FILE"),
			MaxSize:    envInt("STREAMLENS_LOG_MAX_SIZE", 10),
			MaxBackups: envInt("STREAMLENS_LOG_MAX_BACKUPS", 3),
			MaxAge:     envInt("STREAMLENS_LOG_MAX_AGE", 28),
			Compress:   true,
		},
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Settings) validate() error {
	var missing []string
	if s.Jellyfin.URL == "" {
		missing = append(missing, "JELLYFIN_URL")
	}
	if s.Jellyfin.APIKey == "" {
		missing = append(missing, "JELLYFIN_API_KEY")
	}
	if s.Jellyseerr.URL == "" {
		missing = append(missing, "JELLYSEERR_URL")
	}
	if s.Jellyseerr.APIKey == "" {
		missing = append(missing, "JELLYSEERR_API_KEY")
	}
	if s.TMDB.APIKey == "" {
		missing = append(missing, "TMDB_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if s.Sync.Interval < time.Second {
		return errors.New("SYNC_INTERVAL_SECONDS must be at least 1")
	}

	return nil
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
