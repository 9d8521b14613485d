package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TIMEZONE", "America/Edmonton")
	t.Setenv("DEFAULT_CITY", "Calgary")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://expresscouriers.ca, https://www.expresscouriers.ca")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "America/Edmonton", cfg.Location.String())
	assert.Equal(t, "calgary", cfg.Cities.Fallback().ID)
	assert.Equal(t, []string{"airdrie", "calgary", "lethbridge"}, cfg.Cities.IDs())
	assert.Equal(t, []string{"https://expresscouriers.ca", "https://www.expresscouriers.ca"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.Support.Phone)
}

func TestLoad_RejectsUnknownDefaultCity(t *testing.T) {
	t.Setenv("DEFAULT_CITY", "edmonton")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresEndpoints(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PAYMENT_CONFIG_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "checkout", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=checkout sslmode=disable", c.DSN())
	assert.True(t, c.Enabled())
	assert.False(t, DatabaseConfig{}.Enabled())
}
