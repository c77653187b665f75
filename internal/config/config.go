package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL         string
	HTTPTimeout        time.Duration
	FetchAllInterval   time.Duration
	FetchTopicInterval time.Duration
	NotesDebounce      time.Duration
	TokenPath          string
}

func Load() Config {
	return Config{
		APIBaseURL:         getenv("API_BASE_URL", "http://localhost:4000/api"),
		HTTPTimeout:        getenvDuration("HTTP_TIMEOUT", 10*time.Second),
		FetchAllInterval:   getenvDuration("FETCH_ALL_INTERVAL", 1500*time.Millisecond),
		FetchTopicInterval: getenvDuration("FETCH_TOPIC_INTERVAL", time.Second),
		NotesDebounce:      getenvDuration("NOTES_DEBOUNCE", 500*time.Millisecond),
		TokenPath:          getenv("TOKEN_PATH", defaultTokenPath()),
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".js-tracker/token"
	}
	return filepath.Join(home, ".js-tracker", "token")
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
