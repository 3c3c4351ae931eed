/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, token signing secret,
and the room capacity and lobby naming rules consumed by the chat core.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables and are
// immutable once the server has started.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string

	// Chat Settings
	MaxRoomUsers    int
	DefaultRoomName string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3200"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// JWTSecret
	jwtSecret := os.Getenv("JWT_SECRET")
	if cfg.Environment == "development" {
		if jwtSecret == "" {
			jwtSecret = "change-this-secret-key"
		}
	} else {
		if jwtSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
	}
	cfg.JWTSecret = jwtSecret

	// --- Chat Settings ---
	// MaxRoomUsers
	maxUsersStr := os.Getenv("MAX_ROOM_USERS")
	if maxUsersStr == "" {
		maxUsersStr = "50"
	}
	maxUsers, err := strconv.Atoi(maxUsersStr)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ROOM_USERS environment variable: %w", err)
	}
	if maxUsers < 2 {
		return nil, fmt.Errorf("MAX_ROOM_USERS must be at least 2, got %d", maxUsers)
	}
	cfg.MaxRoomUsers = maxUsers

	// DefaultRoomName
	cfg.DefaultRoomName = os.Getenv("DEFAULT_ROOM_NAME")
	if cfg.DefaultRoomName == "" {
		cfg.DefaultRoomName = "General"
	}

	return cfg, nil
}
