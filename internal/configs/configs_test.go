package configs

import "testing"

func TestLoadClientDefaults(t *testing.T) {
	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.ServerURL != "ws://127.0.0.1:6660/v1.0/chat" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Room != "Demo" {
		t.Errorf("Room = %q, want Demo", cfg.Room)
	}
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Port != 6660 {
		t.Errorf("Port = %d, want 6660", cfg.Port)
	}
	if cfg.MaxHistory != 15 {
		t.Errorf("MaxHistory = %d, want 15", cfg.MaxHistory)
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment should be development")
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("GABBER_PORT", "7000")
	t.Setenv("GABBER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GABBER_ENV", "production")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.IsDevelopment() {
		t.Error("production environment reported as development")
	}
}

func TestLoadServerRejectsBadPort(t *testing.T) {
	t.Setenv("GABBER_PORT", "70000")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}
