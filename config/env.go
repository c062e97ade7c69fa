package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables layered over the config file.
const (
	EnvMode        = "FLASHLEND_MODE"
	EnvAsset       = "FLASHLEND_ASSET"
	EnvCustodian   = "FLASHLEND_CUSTODIAN"
	EnvOwner       = "FLASHLEND_OWNER"
	EnvFeeBps      = "FLASHLEND_FEE_BPS"
	EnvMetricsAddr = "FLASHLEND_METRICS_ADDR"
	EnvDebug       = "FLASHLEND_DEBUG"
)

// LoadEnv loads environment variables from a .env file, if one exists.
func LoadEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv gets an environment variable or errors when unset.
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}
