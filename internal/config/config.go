package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	MongoDB  MongoDBConfig `mapstructure:"mongodb"`
	JWT      JWTConfig     `mapstructure:"jwt"`
	Draw     DrawConfig    `mapstructure:"draw"`
	Raffles  RafflesConfig `mapstructure:"raffles"`
	Broker   BrokerConfig  `mapstructure:"broker"`
	LogLevel string        `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	ExpiresIn int    `mapstructure:"expires_in"` // seconds
}

// DrawConfig holds the daily draw schedule
type DrawConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Time     string `mapstructure:"time"` // HH:MM
	Timezone string `mapstructure:"timezone"`
}

// RafflesConfig holds raffle creation limits
type RafflesConfig struct {
	MaxPerDay int           `mapstructure:"max_per_day"`
	MaxActive int           `mapstructure:"max_active"`
	LeadTime  time.Duration `mapstructure:"lead_time"`
}

// BrokerConfig holds RabbitMQ settings. An empty URL disables publishing.
type BrokerConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// Load reads .env, config.yaml and the environment, in increasing precedence.
// Nested keys map to environment variables with dots replaced by underscores,
// e.g. draw.time is DRAW_TIME.
func Load(paths ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Hosting platforms hand out the listen port as PORT.
	cfg.Server.Port = GetEnv("PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = GetEnvAsSlice("CORS_ALLOWED_ORIGINS", ",", cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "rafflywin")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expires_in", 7*24*60*60) // 7 days
	v.SetDefault("draw.enabled", true)
	v.SetDefault("draw.time", "18:00")
	v.SetDefault("draw.timezone", "UTC")
	v.SetDefault("raffles.max_per_day", 3)
	v.SetDefault("raffles.max_active", 0)
	v.SetDefault("raffles.lead_time", 3*time.Hour)
	v.SetDefault("broker.url", "")
	v.SetDefault("broker.exchange", "rafflywin.notifications")
	v.SetDefault("log_level", "info")
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret (JWT_SECRET) must be set")
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("jwt.expires_in must be positive")
	}
	if c.Raffles.MaxPerDay < 1 {
		return errors.New("raffles.max_per_day must be at least 1")
	}
	if c.Raffles.MaxActive < 0 {
		return errors.New("raffles.max_active must not be negative")
	}
	if c.Raffles.LeadTime < 0 {
		return errors.New("raffles.lead_time must not be negative")
	}
	if _, _, err := c.Draw.Clock(); err != nil {
		return err
	}
	if _, err := c.Draw.Location(); err != nil {
		return err
	}
	return nil
}

// Clock parses Time into hour and minute.
func (d DrawConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(d.Time))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid draw.time %q, want HH:MM", d.Time)
	}
	return t.Hour(), t.Minute(), nil
}

// Location loads the draw time zone.
func (d DrawConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid draw.timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

// Schedule returns the parsed draw time and zone.
func (d DrawConfig) Schedule() (hour, minute int, loc *time.Location, err error) {
	if hour, minute, err = d.Clock(); err != nil {
		return 0, 0, nil, err
	}
	if loc, err = d.Location(); err != nil {
		return 0, 0, nil, err
	}
	return hour, minute, loc, nil
}

// TokenTTL returns the access token lifetime
func (j JWTConfig) TokenTTL() time.Duration {
	return time.Duration(j.ExpiresIn) * time.Second
}
