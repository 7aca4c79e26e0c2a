package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Store struct {
		Driver  string `yaml:"driver"` // postgres or memory
		Migrate bool   `yaml:"migrate"`
		Seed    bool   `yaml:"seed"` // memory driver only
	} `yaml:"store"`
	Draft struct {
		ClaimMode string `yaml:"claim_mode"`
	} `yaml:"draft"`
	Listener struct {
		ResyncInterval time.Duration `yaml:"resync_interval"`
	} `yaml:"listener"`
	Relay struct {
		Enabled      bool   `yaml:"enabled"`
		NATSURL      string `yaml:"nats_url"`
		ConsumerName string `yaml:"consumer_name"`
	} `yaml:"relay"`
}

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

func defaultConfig() *Config {
	var config Config
	config.Server.Port = 8080
	config.Server.AllowedOrigins = []string{"*"}
	config.Store.Driver = driverPostgres
	config.Store.Migrate = true
	config.Draft.ClaimMode = string(selection.ClaimConditional)
	config.Listener.ResyncInterval = 30 * time.Second
	return &config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the optional YAML file at path over the defaults, then applies
// environment overrides.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.Migrate = getEnvAsBool("STORE_MIGRATE", c.Store.Migrate)
	c.Store.Seed = getEnvAsBool("STORE_SEED", c.Store.Seed)
	c.Draft.ClaimMode = getEnv("CLAIM_MODE", c.Draft.ClaimMode)
	if iv := os.Getenv("RESYNC_INTERVAL"); iv != "" {
		if d, err := time.ParseDuration(iv); err == nil {
			c.Listener.ResyncInterval = d
		}
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Relay.Enabled = true
		c.Relay.NATSURL = url
	}
	c.Relay.ConsumerName = getEnv("RELAY_CONSUMER_NAME", c.Relay.ConsumerName)
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case driverPostgres, driverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := selection.ParseClaimMode(c.Draft.ClaimMode); err != nil {
		return err
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}
