// Package config loads the service configuration from the environment.
package config

import "os"

// Config holds the process-wide settings.
type Config struct {
	ListenAddr string // address the gin server binds to

	DataHubURL    string // tick stream base URL (http(s) scheme)
	DataHubAPIKey string

	BackendAPIURL   string // brokers backend base URL
	BackendAPIToken string // bearer token for backend calls

	RedisHost     string
	RedisPort     string
	RedisPassword string
}

// Load reads the configuration from environment variables, applying
// defaults suitable for local development.
func Load() Config {
	return Config{
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		DataHubURL:      getenv("DATA_HUB_URL", "http://localhost:9000"),
		DataHubAPIKey:   os.Getenv("DATA_HUB_API_KEY"),
		BackendAPIURL:   getenv("BACKEND_API_URL", "http://localhost:8000"),
		BackendAPIToken: os.Getenv("BACKEND_API_TOKEN"),
		RedisHost:       os.Getenv("REDIS_HOST"),
		RedisPort:       getenv("REDIS_PORT", "6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
