// Package config loads TripMesh configuration from an optional YAML file
// with environment variable overrides. Environment always wins so container
// deployments can stay file-free.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds one MCP server's listen address and the URL agents use
// to reach it.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	URL  string `yaml:"url"`
}

// Config is the full TripMesh configuration.
type Config struct {
	GatewayAddr string `yaml:"gateway_addr"`
	RedisAddr   string `yaml:"redis_addr"`

	Weather ServerConfig `yaml:"weather"`
	Booking ServerConfig `yaml:"booking"`
	Places  ServerConfig `yaml:"places"`
	Planner ServerConfig `yaml:"planner"`

	BookingAPIKey string `yaml:"booking_api_key"`
	PlacesAPIKey  string `yaml:"places_api_key"`

	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Model is the chat model the agents use.
	Model string `yaml:"model"`
}

// Default returns the configuration with all standard ports wired.
func Default() Config {
	return Config{
		GatewayAddr: ":7860",
		Weather:     ServerConfig{Addr: ":5004", URL: "http://localhost:5004/mcp"},
		Booking:     ServerConfig{Addr: ":5001", URL: "http://localhost:5001/mcp"},
		Places:      ServerConfig{Addr: ":5002", URL: "http://localhost:5002/mcp"},
		Planner:     ServerConfig{Addr: ":5003", URL: "http://localhost:5003/mcp"},
		Model:       "gpt-4o-mini",
	}
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.GatewayAddr, "GATEWAY_ADDR")
	setFromEnv(&c.RedisAddr, "REDIS_ADDR")

	setFromEnv(&c.Weather.URL, "WEATHER_SERVER_URL")
	setFromEnv(&c.Booking.URL, "BOOKING_SERVER_URL")
	setFromEnv(&c.Places.URL, "PLACES_SERVER_URL")
	setFromEnv(&c.Planner.URL, "PLANNER_SERVER_URL")

	setFromEnv(&c.BookingAPIKey, "BOOKING_API_KEY")
	setFromEnv(&c.PlacesAPIKey, "GOOGLE_PLACES_API_KEY")

	setFromEnv(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setFromEnv(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setFromEnv(&c.Model, "TRIPMESH_MODEL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
