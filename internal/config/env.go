package config

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an integer or a default value
func GetEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvDuration parses values such as "5s" or "1h".
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(GetEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
