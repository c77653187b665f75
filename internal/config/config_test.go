package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.APIBaseURL != "http://localhost:4000/api" {
		t.Fatalf("unexpected default base url: %s", cfg.APIBaseURL)
	}
	if cfg.FetchAllInterval != 1500*time.Millisecond {
		t.Fatalf("unexpected default fetch-all interval: %s", cfg.FetchAllInterval)
	}
	if cfg.NotesDebounce != 500*time.Millisecond {
		t.Fatalf("unexpected default notes debounce: %s", cfg.NotesDebounce)
	}
	if cfg.TokenPath == "" {
		t.Fatalf("expected a default token path")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://tracker.example.com/api")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("FETCH_ALL_INTERVAL", "2s")
	t.Setenv("FETCH_TOPIC_INTERVAL_MS", "750")
	t.Setenv("NOTES_DEBOUNCE", "250ms")
	t.Setenv("TOKEN_PATH", "/tmp/test-token")

	cfg := Load()
	if cfg.APIBaseURL != "https://tracker.example.com/api" {
		t.Fatalf("expected API_BASE_URL override, got %s", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected HTTP_TIMEOUT 3s, got %s", cfg.HTTPTimeout)
	}
	if cfg.FetchAllInterval != 2*time.Second {
		t.Fatalf("expected FETCH_ALL_INTERVAL 2s, got %s", cfg.FetchAllInterval)
	}
	if cfg.FetchTopicInterval != 750*time.Millisecond {
		t.Fatalf("expected FETCH_TOPIC_INTERVAL_MS 750, got %s", cfg.FetchTopicInterval)
	}
	if cfg.NotesDebounce != 250*time.Millisecond {
		t.Fatalf("expected NOTES_DEBOUNCE 250ms, got %s", cfg.NotesDebounce)
	}
	if cfg.TokenPath != "/tmp/test-token" {
		t.Fatalf("expected TOKEN_PATH override, got %s", cfg.TokenPath)
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	cfg := Load()
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.HTTPTimeout)
	}
}
