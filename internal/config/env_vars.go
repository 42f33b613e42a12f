package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar      = "APP_NAME"
	serverURLVar    = "JUDGE_URL"
	folderEnvVar    = "FOLDER"
	callbackAddrVar = "CALLBACK_ADDR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Judge Client")
}

// GetServerURL returns the base URL of the judge backend.
func (EnvVars) GetServerURL() string {
	return GetEnv(serverURLVar, "http://localhost:8080")
}

// GetDataFolder returns the directory holding the durable session
// state. Defaults to ~/.judge, or ./data when no home dir resolves.
func (EnvVars) GetDataFolder() string {
	fallback := "./data"
	if home, err := os.UserHomeDir(); err == nil {
		fallback = filepath.Join(home, ".judge")
	}
	return GetEnv(folderEnvVar, fallback)
}

// GetCallbackAddr returns the loopback address the login callback
// listener binds. It must match the redirect target registered with the
// backend's identity providers.
func (EnvVars) GetCallbackAddr() string {
	return GetEnv(callbackAddrVar, "127.0.0.1:8973")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
