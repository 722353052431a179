package util

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// LoadEnv loads ".env.<env>" (falling back to ".env") into the process
// environment. Existing variables are never overwritten.
func LoadEnv(env string) error {
	path := ".env." + env
	if _, err := os.Stat(path); err != nil {
		path = ".env"
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// GetEnv returns the value of an environment variable, "" if unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault returns the value of an environment variable or a default.
func GetEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv returns an environment variable coerced to int64, 0 if unset.
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv returns an environment variable coerced to bool, false if unset.
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}

// GetFloatEnv returns an environment variable coerced to float64, 0 if unset.
func GetFloatEnv(key string) float64 {
	return cast.ToFloat64(os.Getenv(key))
}

// GetDurationEnv returns an environment variable parsed as a duration,
// falling back to def when unset or malformed.
func GetDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
