// Package config reads the application settings from the environment
// (populated from .env by main) with defaults for everything optional.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/stravaetl/pkg/database"
	"github.com/spf13/viper"
)

// Supported backends.
const (
	CheckpointFile     = "file"
	CheckpointPostgres = "postgres"

	DBPostgres  = "postgres"
	DBSQLServer = "sqlserver"
	DBMongo     = "mongo"
)

type Config struct {
	Accounts []string
	DataDir  string
	LogDir   string
	LogLevel string

	Strava Strava

	CheckpointBackend string
	DBDriver          string
	Postgres          Postgres
	SQLConnString     string
	MongoConnString   string
	MongoDatabase     string

	PushgatewayURL string
	MetricsJob     string

	v *viper.Viper
}

type Strava struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenURL     string
	PageSize     int
	MaxPages     int
	HTTPTimeout  time.Duration
}

type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	DB       string
	SSLMode  string
}

var accountName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STRAVA_API_URL", "https://www.strava.com/api/v3")
	v.SetDefault("STRAVA_TOKEN_URL", "https://www.strava.com/oauth/token")
	v.SetDefault("STRAVA_PAGE_SIZE", 100)
	v.SetDefault("STRAVA_MAX_PAGES", 0)
	v.SetDefault("STRAVA_HTTP_TIMEOUT", "30s")
	v.SetDefault("CHECKPOINT_BACKEND", CheckpointFile)
	v.SetDefault("DB_DRIVER", DBPostgres)
	v.SetDefault("POSTGRES_HOST", "db")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("MONGO_DATABASE", "strava")
	v.SetDefault("METRICS_JOB", "stravaetl")
	return v
}

// LoadConfig reads the environment. It does not validate; callers check what
// their command needs.
func LoadConfig() (*Config, error) {
	v := newViper()

	timeout, err := parseDuration(v.GetString("STRAVA_HTTP_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("STRAVA_HTTP_TIMEOUT: %w", err)
	}

	return &Config{
		Accounts: splitAccounts(v.GetString("ACCOUNTS")),
		DataDir:  v.GetString("DATA_DIR"),
		LogDir:   v.GetString("LOG_DIR"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Strava: Strava{
			ClientID:     v.GetString("STRAVA_CLIENT_ID"),
			ClientSecret: v.GetString("STRAVA_CLIENT_SECRET"),
			APIURL:       v.GetString("STRAVA_API_URL"),
			TokenURL:     v.GetString("STRAVA_TOKEN_URL"),
			PageSize:     v.GetInt("STRAVA_PAGE_SIZE"),
			MaxPages:     v.GetInt("STRAVA_MAX_PAGES"),
			HTTPTimeout:  timeout,
		},
		CheckpointBackend: strings.ToLower(v.GetString("CHECKPOINT_BACKEND")),
		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		Postgres: Postgres{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DB:       v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		SQLConnString:   v.GetString("SQL_CONNECTION_STRING"),
		MongoConnString: v.GetString("MONGO_CONNECTION_STRING"),
		MongoDatabase:   v.GetString("MONGO_DATABASE"),
		PushgatewayURL:  v.GetString("PUSHGATEWAY_URL"),
		MetricsJob:      v.GetString("METRICS_JOB"),
		v:               v,
	}, nil
}

func splitAccounts(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// parseDuration accepts Go durations ("45s") and plain seconds ("45").
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs) * time.Second, nil
}

// RefreshToken returns <ACCOUNT>_REFRESH_TOKEN, read at call time.
func (c *Config) RefreshToken(account string) string {
	if c.v == nil {
		c.v = newViper()
	}
	return c.v.GetString(strings.ToUpper(account) + "_REFRESH_TOKEN")
}

// PostgresDSN is used by the postgres loader and checkpoint backend.
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return database.PostgresDSN(p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode)
}

// Validate checks the settings every command needs: the account list and the
// checkpoint backend.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Accounts) == 0 {
		errs = append(errs, errors.New("ACCOUNTS is empty"))
	}
	seen := make(map[string]bool)
	for _, a := range c.Accounts {
		if !accountName.MatchString(a) {
			errs = append(errs, fmt.Errorf("account %q: only letters, digits and _ are allowed", a))
		}
		if seen[a] {
			errs = append(errs, fmt.Errorf("account %q listed twice", a))
		}
		seen[a] = true
	}

	switch c.CheckpointBackend {
	case CheckpointFile:
	case CheckpointPostgres:
		errs = append(errs, c.requirePostgres("CHECKPOINT_BACKEND=postgres")...)
	default:
		errs = append(errs, fmt.Errorf("CHECKPOINT_BACKEND %q is not one of file, postgres", c.CheckpointBackend))
	}

	return errors.Join(errs...)
}

// ValidateStrava checks what the extract stage needs.
func (c *Config) ValidateStrava() error {
	var errs []error
	if c.Strava.ClientID == "" {
		errs = append(errs, errors.New("STRAVA_CLIENT_ID is not set"))
	}
	if c.Strava.ClientSecret == "" {
		errs = append(errs, errors.New("STRAVA_CLIENT_SECRET is not set"))
	}
	if c.Strava.PageSize < 1 || c.Strava.PageSize > 100 {
		errs = append(errs, fmt.Errorf("STRAVA_PAGE_SIZE %d is outside 1..100", c.Strava.PageSize))
	}
	if c.Strava.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("STRAVA_MAX_PAGES %d is negative", c.Strava.MaxPages))
	}
	if c.Strava.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("STRAVA_HTTP_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateLoader checks what the transform-load stage needs for DB_DRIVER.
func (c *Config) ValidateLoader() error {
	switch c.DBDriver {
	case DBPostgres:
		return errors.Join(c.requirePostgres("DB_DRIVER=postgres")...)
	case DBSQLServer:
		if c.SQLConnString == "" {
			return errors.New("DB_DRIVER=sqlserver: SQL_CONNECTION_STRING is not set")
		}
	case DBMongo:
		if c.MongoConnString == "" {
			return errors.New("DB_DRIVER=mongo: MONGO_CONNECTION_STRING is not set")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q is not one of postgres, sqlserver, mongo", c.DBDriver)
	}
	return nil
}

func (c *Config) requirePostgres(reason string) []error {
	var errs []error
	if c.Postgres.User == "" {
		errs = append(errs, fmt.Errorf("%s: POSTGRES_USER is not set", reason))
	}
	if c.Postgres.DB == "" {
		errs = append(errs, fmt.Errorf("%s: POSTGRES_DB is not set", reason))
	}
	return errs
}
