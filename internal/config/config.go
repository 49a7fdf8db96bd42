package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes the configuration values the rest of the application
// depends on. Services receive a Provider instead of reading the environment
// themselves, so tests can inject fixed values.
type Provider interface {
	GetPort() string
	GetGridSize() int
	GetMatchmakingTimeout() time.Duration
	GetSweepInterval() time.Duration
	GetCleanupInterval() time.Duration
	GetBalanceScriptPath() string
}

// Config holds all configuration for the application.
type Config struct {
	Port               string
	GridSize           int
	MatchmakingTimeout time.Duration
	SweepInterval      time.Duration
	CleanupInterval    time.Duration
	BalanceScriptPath  string
}

var _ Provider = (*Config)(nil)

func (c *Config) GetPort() string                      { return c.Port }
func (c *Config) GetGridSize() int                     { return c.GridSize }
func (c *Config) GetMatchmakingTimeout() time.Duration { return c.MatchmakingTimeout }
func (c *Config) GetSweepInterval() time.Duration      { return c.SweepInterval }
func (c *Config) GetCleanupInterval() time.Duration    { return c.CleanupInterval }
func (c *Config) GetBalanceScriptPath() string         { return c.BalanceScriptPath }

// New loads configuration from environment variables, with a .env file as a
// convenience for development.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:               getEnv("APP_PORT", "4000"),
		GridSize:           getEnvInt("GRID_SIZE", 20),
		MatchmakingTimeout: getEnvDuration("MATCHMAKING_TIMEOUT", 60*time.Second),
		SweepInterval:      getEnvDuration("MATCHMAKING_SWEEP_INTERVAL", 2*time.Second),
		CleanupInterval:    getEnvDuration("MATCHMAKING_CLEANUP_INTERVAL", 30*time.Second),
		BalanceScriptPath:  os.Getenv("BALANCE_SCRIPT"),
	}

	if cfg.GridSize < 4 {
		log.Fatal(fmt.Sprintf("GRID_SIZE must be at least 4, got %d", cfg.GridSize))
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatal(fmt.Sprintf("%s must be an integer, got %q", key, v))
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatal(fmt.Sprintf("%s must be a duration (e.g. 30s), got %q", key, v))
	}
	return d
}
