// Package env loads configuration from a .env file with per-key overrides
// from the process environment.
package env

import (
	"os"

	"github.com/joho/godotenv"
)

var values map[string]string

// GetEnv returns the configured value for key. The .env file wins, the
// process environment is the override channel (Docker, CI), def is the
// last resort.
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := values[key]; ok {
		return v
	}
	return def
}

// SetupEnvFile reads the nearest .env file, walking up from the working
// directory so both the repo root and cmd/campusconnect work. The service
// refuses to start without one; a missing file is a deployment error, not
// something to paper over with defaults.
func SetupEnvFile() {
	for _, path := range []string{".env", "../../.env"} {
		if m, err := godotenv.Read(path); err == nil {
			values = m
			return
		}
	}
	panic("no .env file found")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
