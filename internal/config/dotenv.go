package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var (
	dotenvMu     sync.Mutex
	dotenvValues map[string]string
	dotenvLoaded bool
)

// loadDotenv reads KEY=VALUE pairs from .env in the current directory
// without touching the process environment. Results are cached after the
// first call. A missing or unparsable file yields an empty map.
func loadDotenv() map[string]string {
	dotenvMu.Lock()
	defer dotenvMu.Unlock()

	if dotenvLoaded {
		return dotenvValues
	}
	dotenvLoaded = true

	vals, err := godotenv.Read(".env")
	if err != nil {
		vals = make(map[string]string)
	}
	dotenvValues = vals
	return dotenvValues
}

// ResetDotenv clears the cached .env values, forcing a reload on the
// next call to Getenv. Used by tests.
func ResetDotenv() {
	dotenvMu.Lock()
	defer dotenvMu.Unlock()
	dotenvValues = nil
	dotenvLoaded = false
}

// Getenv returns the value of key from the environment, falling back
// to the .env file in the current directory. Environment variables
// always take precedence.
func Getenv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return loadDotenv()[key]
}
