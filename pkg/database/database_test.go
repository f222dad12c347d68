package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSNRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		dbname   string
	}{
		{"plain", "strava", "secret", "strava"},
		{"space in password", "strava", "correct horse", "strava"},
		{"quotes and backslash", "strava", `it's a \ pw`, "strava"},
		{"url delimiters", "etl@home", "p@ss:w/rd?#%", "strava data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := pgconn.ParseConfig(PostgresDSN("db", 5433, tt.user, tt.password, tt.dbname, ""))
			require.NoError(t, err)
			assert.Equal(t, "db", cfg.Host)
			assert.Equal(t, uint16(5433), cfg.Port)
			assert.Equal(t, tt.user, cfg.User)
			assert.Equal(t, tt.password, cfg.Password)
			assert.Equal(t, tt.dbname, cfg.Database)
			assert.Nil(t, cfg.TLSConfig, "sslmode defaults to disable")
		})
	}
}
