// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config is built once at startup and handed to constructors; nothing else
// in the service reads the environment.
type Config struct {
	Port           string
	LogLevel       string
	AllowedOrigins string
	RequestTimeout time.Duration

	StoreDriver  string
	DatabaseURL  string
	EntriesTable string

	MongoURI        string
	MongoDBName     string
	MongoCollection string

	RedisURL     string
	RankCacheTTL time.Duration

	AdminToken    string
	StatsInterval time.Duration

	Export R2Config
}

// R2Config holds the Cloudflare R2 (S3 API) credentials used by the export job.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
	Interval        time.Duration
}

// Enabled reports whether snapshot export has a bucket to write to.
func (r R2Config) Enabled() bool {
	return r.Bucket != "" && r.AccountID != ""
}

// SessionConfig carries the client-side routes for the quest session.
type SessionConfig struct {
	QuestPath       string
	DecoyPath       string
	ActivationDelay time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply a map.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}

	cfg := Config{
		Port:           env("PORT", "5200"),
		LogLevel:       env("LOG_LEVEL", "info"),
		AllowedOrigins: normalizeOrigins(env("ALLOWED_ORIGINS", "http://localhost:3000")),
		RequestTimeout: dur("REQUEST_TIMEOUT", 10*time.Second),

		StoreDriver:  strings.ToLower(env("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:  env("DATABASE_URL", ""),
		EntriesTable: env("ENTRIES_TABLE", "entries"),

		MongoURI:        env("MONGODB_URI", ""),
		MongoDBName:     env("MONGODB_DB_NAME", ""),
		MongoCollection: env("MONGODB_COLLECTION_NAME", "entries"),

		RedisURL:     env("REDIS_URL", ""),
		RankCacheTTL: dur("RANK_CACHE_TTL", 30*time.Second),

		AdminToken:    env("ADMIN_TOKEN", ""),
		StatsInterval: dur("STATS_INTERVAL", time.Minute),

		Export: R2Config{
			AccountID:       env("CLOUDFLARE_ACCOUNT_ID", ""),
			AccessKeyID:     env("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: env("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          env("R2_BUCKET_NAME", ""),
			Prefix:          env("EXPORT_PREFIX", "exports/"),
			Interval:        dur("EXPORT_INTERVAL", 6*time.Hour),
		},
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverSQLite:
		if cfg.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL environment variable not set")
		}
	case DriverMongo:
		if cfg.MongoURI == "" || cfg.MongoDBName == "" {
			errs = append(errs, "MONGODB_URI and MONGODB_DB_NAME must be set for the mongo driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER: unsupported driver %q", cfg.StoreDriver))
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}
