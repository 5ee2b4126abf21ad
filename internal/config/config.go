// Package config loads menu-service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

const (
	defaultListenAddr      = ":8080"
	defaultParseServerURL  = "https://parseapi.back4app.com"
	defaultParseClass      = "MenuItem"
	defaultWeatherURL      = "https://api.open-meteo.com/v1/forecast"
	defaultWeatherTimezone = "America/Sao_Paulo"
	defaultHTTPTimeout     = 15 * time.Second
	defaultMode            = "read-write"
)

var defaultCategories = []string{"Entrada", "Prato principal", "Sobremesa", "Bebida"}

var defaultLocations = []types.Location{
	{Key: "Recife - PE", Latitude: -8.0432784, Longitude: -35.0990265},
	{Key: "Olinda - PE", Latitude: -7.9965313, Longitude: -34.8720278},
	{Key: "Jaboatão dos Guararapes - PE", Latitude: -8.145843, Longitude: -35.1651605},
}

// Config holds service configuration values. Load returns it by value and
// the slice accessors hand out copies, so a loaded Config is never mutated.
type Config struct {
	ListenAddr string `validate:"required"`
	LogLevel   string `validate:"oneof=trace debug info warn error fatal panic"`
	DevMode    bool

	ParseServerURL string `validate:"required,url"`
	ParseAppID     string `validate:"required"`
	ParseClientKey string `validate:"required"`
	ParseClass     string `validate:"required"`

	WeatherURL      string `validate:"required,url"`
	WeatherTimezone string `validate:"required"`
	HTTPTimeout     time.Duration

	Mode            string `validate:"oneof=read-only read-write"`
	EnableWrite     bool
	RequireCategory bool

	categories []string
	locations  []types.Location
}

type locationsFile struct {
	Locations []types.Location `yaml:"locations" validate:"required,min=1,unique=Key,dive"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      envOrDefault("DGK_LISTEN_ADDR", defaultListenAddr),
		LogLevel:        strings.ToLower(envOrDefault("DGK_LOG_LEVEL", "info")),
		DevMode:         envBool("DGK_DEV_MODE", false),
		ParseServerURL:  strings.TrimRight(envOrDefault("DGK_PARSE_SERVER_URL", defaultParseServerURL), "/"),
		ParseAppID:      strings.TrimSpace(os.Getenv("DGK_PARSE_APP_ID")),
		ParseClientKey:  strings.TrimSpace(os.Getenv("DGK_PARSE_CLIENT_KEY")),
		ParseClass:      strings.TrimSpace(envOrDefault("DGK_PARSE_CLASS", defaultParseClass)),
		WeatherURL:      envOrDefault("DGK_WEATHER_URL", defaultWeatherURL),
		WeatherTimezone: strings.TrimSpace(envOrDefault("DGK_WEATHER_TIMEZONE", defaultWeatherTimezone)),
		HTTPTimeout:     envPositiveDuration("DGK_HTTP_TIMEOUT", defaultHTTPTimeout),
		Mode:            strings.ToLower(strings.TrimSpace(envOrDefault("DGK_MODE", defaultMode))),
		EnableWrite:     envBool("DGK_ENABLE_WRITE", true),
		RequireCategory: envBool("DGK_REQUIRE_CATEGORY", true),
		categories:      envList("DGK_CATEGORIES", defaultCategories),
		locations:       append([]types.Location(nil), defaultLocations...),
	}

	if path := strings.TrimSpace(os.Getenv("DGK_LOCATIONS_FILE")); path != "" {
		locations, err := loadLocations(path)
		if err != nil {
			return Config{}, err
		}
		cfg.locations = locations
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation error: %w", describeValidation(err))
	}
	if _, err := time.LoadLocation(cfg.WeatherTimezone); err != nil {
		return Config{}, fmt.Errorf("DGK_WEATHER_TIMEZONE %q: %w", cfg.WeatherTimezone, err)
	}

	return cfg, nil
}

// Categories returns the configured default menu categories.
func (c Config) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Locations returns the facility table in fan-out order.
func (c Config) Locations() []types.Location {
	return append([]types.Location(nil), c.locations...)
}

// LocationKeys returns the facility keys in fan-out order.
func (c Config) LocationKeys() []string {
	keys := make([]string, 0, len(c.locations))
	for _, loc := range c.locations {
		keys = append(keys, loc.Key)
	}
	return keys
}

func loadLocations(path string) ([]types.Location, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding DGK_LOCATIONS_FILE: %w", err)
	}

	raw, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("reading locations file: %w", err)
	}

	var file locationsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("unable to unmarshal locations file: %w", err)
	}
	for i := range file.Locations {
		file.Locations[i].Key = strings.TrimSpace(file.Locations[i].Key)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("locations file validation error: %w", describeValidation(err))
	}
	return file.Locations, nil
}

// describeValidation flattens validator field errors into one readable error.
func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return b
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

// envList splits a comma-separated variable, dropping blanks and duplicates.
func envList(key string, defaultVal []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return append([]string(nil), defaultVal...)
	}
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return out
}
