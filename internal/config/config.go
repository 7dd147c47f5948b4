package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Plex
	PlexURL          string
	PlexToken        string
	PlexClientFilter string // Optional player name filter (e.g. "Plexamp")

	// Lidarr (optional; when unset, dislikes are recorded but never purged)
	LidarrURL    string
	LidarrAPIKey string

	// Tracking
	PollInterval time.Duration // How often the session tracker polls Plex
	FinishGrace  time.Duration // Delay between session vanish and finalization

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/goplexarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("POLL_INTERVAL_SECONDS", 5)
	viper.SetDefault("FINISH_GRACE_SECONDS", 30)
	viper.SetDefault("SERVER_PORT", "7000")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "goplexarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Plex
		PlexURL:          viper.GetString("PLEX_URL"),
		PlexToken:        viper.GetString("PLEX_TOKEN"),
		PlexClientFilter: viper.GetString("PLEX_CLIENT_FILTER"),

		// Lidarr
		LidarrURL:    viper.GetString("LIDARR_URL"),
		LidarrAPIKey: viper.GetString("LIDARR_API_KEY"),

		// Tracking
		PollInterval: time.Duration(viper.GetInt("POLL_INTERVAL_SECONDS")) * time.Second,
		FinishGrace:  time.Duration(viper.GetInt("FINISH_GRACE_SECONDS")) * time.Second,

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "goplexarr.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.PlexURL == "" {
		return nil, fmt.Errorf("PLEX_URL is required")
	}
	if config.PlexToken == "" {
		return nil, fmt.Errorf("PLEX_TOKEN is required")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if config.FinishGrace < 0 {
		return nil, fmt.Errorf("FINISH_GRACE_SECONDS must not be negative")
	}
	// Lidarr is optional, but both halves must be set together
	if (config.LidarrURL == "") != (config.LidarrAPIKey == "") {
		return nil, fmt.Errorf("LIDARR_URL and LIDARR_API_KEY must be set together")
	}

	return config, nil
}
