package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("API_PREFIX", "http://backend:8000/")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.APIPrefix != "http://backend:8000" {
		t.Fatalf("APIPrefix = %q, want trailing slash trimmed", cfg.APIPrefix)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("PostgresDSN = %q, want empty", cfg.PostgresDSN)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadServerRequiresAPIPrefix(t *testing.T) {
	t.Setenv("API_PREFIX", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("API_PREFIX", "http://backend:8000")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "3")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if !cfg.CookieSecure {
		t.Fatal("CookieSecure = false, want true")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LoginPerMinute != 3 {
		t.Fatalf("LoginPerMinute = %d, want 3", cfg.LoginPerMinute)
	}
	if cfg.SessionSecret != "s3cret" {
		t.Fatalf("SessionSecret = %q, want s3cret", cfg.SessionSecret)
	}
}
