package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte("[listen]\nport = 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.toml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[listen]\nport = 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.toml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.toml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[auth]\ntoken = \"${GATEWAY_TEST_TOKEN}\"\n"), 0600)
	os.Setenv("GATEWAY_TEST_TOKEN", "secret123")
	defer os.Unsetenv("GATEWAY_TEST_TOKEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Auth.Token != "secret123" {
		t.Errorf("token = %q, want %q", cfg.Auth.Token, "secret123")
	}
}

func TestLoad_InlineSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[redis]\npassword = \"redis-test-pass\"\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Redis.Password != "redis-test-pass" {
		t.Errorf("password = %q, want %q", cfg.Redis.Password, "redis-test-pass")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[auth]\ntoken = \"x\"\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen.Port != 8080 {
		t.Errorf("listen.port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.Redis.Address != "localhost:6379" {
		t.Errorf("redis.address = %q, want %q", cfg.Redis.Address, "localhost:6379")
	}
	if cfg.Upstream.RequestTimeoutSec != 20 {
		t.Errorf("upstream.request_timeout_sec = %d, want 20", cfg.Upstream.RequestTimeoutSec)
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range listen.port")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unrecognized log_level")
	}
}

func TestMediaConfig_Configured(t *testing.T) {
	tests := []struct {
		name string
		cfg  MediaConfig
		want bool
	}{
		{"root set", MediaConfig{Root: "/var/lib/gatewayd/media"}, true},
		{"empty", MediaConfig{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPluginConfig_DecodesNamedTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[plugins.echo]\nprefix = \">> \"\nenabled = true\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	var dst struct {
		Prefix  string `toml:"prefix"`
		Enabled bool   `toml:"enabled"`
	}
	if err := cfg.PluginConfig("echo", &dst); err != nil {
		t.Fatalf("PluginConfig error: %v", err)
	}
	if dst.Prefix != ">> " || !dst.Enabled {
		t.Errorf("decoded plugin config = %+v", dst)
	}
}

func TestPluginConfig_MissingTableIsNoop(t *testing.T) {
	cfg := Default()
	var dst struct{ X int }
	if err := cfg.PluginConfig("nonexistent", &dst); err != nil {
		t.Fatalf("PluginConfig for missing plugin should be a no-op, got: %v", err)
	}
}
