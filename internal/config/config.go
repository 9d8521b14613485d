package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/expresscouriers/checkout/internal/domain"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Database    DatabaseConfig
	Payment     PaymentConfig
	Dispatch    DispatchConfig
	Support     SupportConfig
	Cities      domain.CityTable
	Location    *time.Location
	// SessionScope partitions persisted session entries; CLI tools and the server share it
	SessionScope       string
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether a database host was configured; without one the tools use memory stores
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// PaymentConfig is used to request payment sessions and mount the widget
type PaymentConfig struct {
	ConfigURL   string // e.g. https://pay.expresscouriers.ca
	ContainerID string
}

// DispatchConfig is used to record paid orders in the back office
type DispatchConfig struct {
	URL        string
	ServiceKey string // DISPATCH_SERVICE_KEY, sent as Bearer when set
}

// SupportConfig drives the manual-recovery notice and the support API
type SupportConfig struct {
	Phone      string
	Email      string
	APIKeyHash string // bcrypt hash of the support API key
	WebhookURL string // receives failed-order alerts; empty disables them
}

func Load() (*Config, error) {
	// .env values never override the real environment
	_ = godotenv.Load()

	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	tz := getEnvOrViper("TIMEZONE", "America/Edmonton")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	defaultCity := domain.NormalizeCityID(getEnvOrViper("DEFAULT_CITY", "calgary"))
	cities := domain.NewCityTable(DefaultCityProfiles(), defaultCity)
	if _, ok := cities.Lookup(defaultCity); !ok {
		return nil, fmt.Errorf("DEFAULT_CITY %q is not a configured city (have %s)", defaultCity, strings.Join(cities.IDs(), ", "))
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", ""),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "checkout"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Payment: PaymentConfig{
			ConfigURL:   strings.TrimSpace(getEnvOrViper("PAYMENT_CONFIG_URL", "")),
			ContainerID: getEnvOrViper("WIDGET_CONTAINER_ID", "payment-widget"),
		},
		Dispatch: DispatchConfig{
			URL:        strings.TrimSpace(getEnvOrViper("DISPATCH_URL", "")),
			ServiceKey: strings.TrimSpace(getEnvOrViper("DISPATCH_SERVICE_KEY", "")),
		},
		Support: SupportConfig{
			Phone:      getEnvOrViper("SUPPORT_PHONE", "(403) 555-0142"),
			Email:      getEnvOrViper("SUPPORT_EMAIL", "support@expresscouriers.ca"),
			APIKeyHash: strings.TrimSpace(getEnvOrViper("SUPPORT_API_KEY_HASH", "")),
			WebhookURL: strings.TrimSpace(getEnvOrViper("SUPPORT_WEBHOOK_URL", "")),
		},
		Cities:             cities,
		Location:           loc,
		SessionScope:       getEnvOrViper("SESSION_SCOPE", "checkout"),
		CORSAllowedOrigins: splitList(getEnvOrViper("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.Environment == "production" {
		if cfg.Payment.ConfigURL == "" {
			return nil, fmt.Errorf("PAYMENT_CONFIG_URL is required in production")
		}
		if cfg.Dispatch.URL == "" {
			return nil, fmt.Errorf("DISPATCH_URL is required in production")
		}
	}

	return cfg, nil
}

// DefaultCityProfiles returns the served cities. Bounds match the address autocomplete boxes.
func DefaultCityProfiles() []domain.CityProfile {
	return []domain.CityProfile{
		{
			ID:                "airdrie",
			Name:              "Airdrie",
			BaseDeliveryFee:   20.00,
			DistanceRatePerKm: 0.40,
			TaxRate:           0.05,
			Center:            domain.LatLng{Lat: 51.2927, Lng: -114.0134},
			Bounds:            domain.Bounds{North: 51.3227, South: 51.2627, East: -113.9834, West: -114.0434},
		},
		{
			ID:                      "calgary",
			Name:                    "Calgary",
			BaseDeliveryFee:         20.00,
			DistanceRatePerKm:       0.40,
			RushHourSurcharge:       2.50,
			TaxRate:                 0.05,
			LongDistanceThresholdKm: 25,
			LongDistanceSurcharge:   5.00,
			Center:                  domain.LatLng{Lat: 51.0447, Lng: -114.0719},
			Bounds:                  domain.Bounds{North: 51.2000, South: 50.8500, East: -113.8500, West: -114.2900},
		},
		{
			ID:                "lethbridge",
			Name:              "Lethbridge",
			BaseDeliveryFee:   20.00,
			DistanceRatePerKm: 0.40,
			TaxRate:           0.05,
			Center:            domain.LatLng{Lat: 49.6956, Lng: -112.8451},
			Bounds:            domain.Bounds{North: 49.7500, South: 49.6500, East: -112.7500, West: -112.9500},
		},
	}
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
