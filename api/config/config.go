package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT"`
	// API_PORT is the local fallback used before PORT existed.
	APIPort string `env:"API_PORT" envDefault:"8888"`

	Database Database
	Redis    Redis

	APISecret      string `env:"API_SECRET"`
	AnonDeviceSalt string `env:"ANON_DEVICE_SALT"`

	Tournament Tournament
	Media      Media

	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	SentryDSN     string   `env:"SENTRY_DSN"`
	SeedDemoSongs bool     `env:"SEED_DEMO_SONGS" envDefault:"false"`
}

type Database struct {
	Type     string `env:"DATABASE_TYPE" envDefault:"postgres"`
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	// SQLitePath is used when Type is sqlite.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"songbracket.db"`
}

type Redis struct {
	URL      string `env:"REDIS_URL"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Username string `env:"REDIS_USERNAME"`
	Password string `env:"REDIS_PASSWORD"`
}

// Tournament holds the engine knobs.
type Tournament struct {
	PoolSize       int           `env:"TOURNAMENT_POOL_SIZE" envDefault:"128"`
	MaxRounds      int           `env:"TOURNAMENT_MAX_ROUNDS" envDefault:"10"`
	VoteAttempts   int           `env:"VOTE_MAX_ATTEMPTS" envDefault:"3"`
	RetryBackoff   time.Duration `env:"VOTE_RETRY_BACKOFF" envDefault:"50ms"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`
	StaleAfter     time.Duration `env:"SESSION_STALE_AFTER" envDefault:"720h"`
	SweepSchedule  string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@hourly"`
}

type Media struct {
	Bucket string        `env:"S3_BUCKET"`
	Region string        `env:"AWS_REGION" envDefault:"us-east-1"`
	URLTTL time.Duration `env:"MEDIA_URL_TTL" envDefault:"1h"`
}

// Load reads .env outside production and parses the environment.
func Load() (Config, error) {
	if !strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		_ = godotenv.Load()
	}
	return Parse()
}

// Parse reads the environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Database.Type {
	case DatabasePostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("postgres requires DATABASE_URL or DB_HOST"))
		}
	case DatabaseSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_TYPE %q", c.Database.Type))
	}
	if c.Tournament.PoolSize < 2 {
		errs = append(errs, errors.New("TOURNAMENT_POOL_SIZE must be at least 2"))
	}
	if c.Tournament.MaxRounds < 1 {
		errs = append(errs, errors.New("TOURNAMENT_MAX_ROUNDS must be at least 1"))
	}
	if c.Tournament.VoteAttempts < 1 {
		errs = append(errs, errors.New("VOTE_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// ListenAddr prefers PORT (set by the host platform) over API_PORT.
func (c Config) ListenAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = strings.TrimSpace(c.APIPort)
	}
	return ":" + port
}

// PostgresDSN builds the connection string. In production DATABASE_URL wins
// and gets sslmode=require unless it already names a mode.
func (c Config) PostgresDSN() string {
	if dsn := c.Database.URL; dsn != "" {
		if c.IsProduction() && !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				return dsn + "&sslmode=require"
			}
			return dsn + "?sslmode=require"
		}
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Database.Host, c.Database.User, c.Database.Password, c.Database.Name, c.Database.Port,
	)
}
