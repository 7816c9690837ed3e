package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Database configuration
	DatabaseURL string

	// Audio node configuration
	NodeAddress  string
	NodePassword string

	// How long the node lets a session sit idle (connected, nothing queued
	// or playing) before it signals the session inactive
	NodeIdleTimeout time.Duration

	// StayWhenAlone keeps the bot in a voice channel after the last human
	// member leaves. Fleet-wide; there is no per-guild override.
	StayWhenAlone bool

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Audio node with defaults
		NodeAddress:     os.Getenv("NODE_ADDRESS"),
		NodePassword:    os.Getenv("NODE_PASSWORD"),
		NodeIdleTimeout: 30 * time.Second,

		StayWhenAlone: os.Getenv("STAY_WHEN_ALONE") == "true",

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if timeout := os.Getenv("NODE_IDLE_TIMEOUT_SECONDS"); timeout != "" {
		if parsedTimeout, err := strconv.Atoi(timeout); err == nil {
			config.NodeIdleTimeout = time.Duration(parsedTimeout) * time.Second
		}
	}

	if config.NodeAddress == "" {
		config.NodeAddress = "localhost:2333"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
