// Package config resolves server settings from FORUM_* environment
// variables, a .env file and built-in defaults, in that order.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds the server configuration.
type Config struct {
	Port         int
	DataFile     string
	DatabaseURL  string
	Token        string
	CacheTTL     time.Duration
	FeedURL      string
	Subreddit    string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:         8080,
		DataFile:     "forum.json",
		CacheTTL:     5 * time.Minute,
		FeedURL:      "https://www.reddit.com",
		Subreddit:    "programming",
		LogLevel:     "info",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Load builds a Config from the environment and .env, on top of Defaults.
func Load() (Config, error) {
	cfg := Defaults()

	if v := Getenv("FORUM_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FORUM_PORT: %w", err)
		}
		cfg.Port = p
	}
	for key, dst := range map[string]*time.Duration{
		"FORUM_CACHE_TTL":     &cfg.CacheTTL,
		"FORUM_READ_TIMEOUT":  &cfg.ReadTimeout,
		"FORUM_WRITE_TIMEOUT": &cfg.WriteTimeout,
	} {
		if v := Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*string{
		"FORUM_DATA_FILE":    &cfg.DataFile,
		"FORUM_DATABASE_URL": &cfg.DatabaseURL,
		"FORUM_TOKEN":        &cfg.Token,
		"FORUM_FEED_URL":     &cfg.FeedURL,
		"FORUM_SUBREDDIT":    &cfg.Subreddit,
		"FORUM_LOG_LEVEL":    &cfg.LogLevel,
	} {
		if v := Getenv(key); v != "" {
			*dst = v
		}
	}
	return cfg, nil
}
