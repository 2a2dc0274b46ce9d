// Package config resolves file locations and runtime settings from the
// environment and an optional config.env file in the application directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/teemow/gmail-inbox-status/internal/google"
	"github.com/teemow/gmail-inbox-status/internal/instrumentation"
	"github.com/teemow/gmail-inbox-status/internal/logging"
)

// Environment variables read by Load.
const (
	EnvHome         = "GMAIL_INBOX_STATUS_HOME"
	EnvLogLevel     = "GMAIL_INBOX_STATUS_LOG_LEVEL"
	EnvCallbackAddr = "GMAIL_INBOX_STATUS_CALLBACK_ADDR"
	EnvNoBrowser    = "GMAIL_INBOX_STATUS_NO_BROWSER"
)

const (
	appDirName          = ".gmail-inbox-status"
	credentialsFileName = "google-oauth-credentials.json"
	tokensDirName       = "tokens"
	envFileName         = "config.env"
)

// Config holds the settings for one invocation.
type Config struct {
	// AppDir holds the client credentials, tokens and config.env.
	AppDir string

	LogLevel     string
	CallbackAddr string
	OpenBrowser  bool

	Instrumentation instrumentation.Config
}

// CredentialsFile is where the user places the OAuth client JSON.
func (c *Config) CredentialsFile() string {
	return filepath.Join(c.AppDir, credentialsFileName)
}

// TokensDir holds one token file per account.
func (c *Config) TokensDir() string {
	return filepath.Join(c.AppDir, tokensDirName)
}

// Load resolves the application directory, applies <app-dir>/config.env
// without overriding variables already set, and reads the settings.
func Load() (*Config, error) {
	appDir := AppDir()

	err := godotenv.Load(filepath.Join(appDir, envFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFileName, err)
	}

	return &Config{
		AppDir:          appDir,
		LogLevel:        getEnvOrDefault(EnvLogLevel, logging.DefaultLevel),
		CallbackAddr:    getEnvOrDefault(EnvCallbackAddr, google.DefaultCallbackAddr),
		OpenBrowser:     !getEnvBoolOrDefault(EnvNoBrowser, false),
		Instrumentation: instrumentation.DefaultConfig(),
	}, nil
}

// AppDir returns $GMAIL_INBOX_STATUS_HOME, or ~/.gmail-inbox-status.
func AppDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), appDirName)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	// Windows fallback
	return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
