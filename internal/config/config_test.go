// ABOUTME: Tests for environment configuration loading.
// ABOUTME: Covers defaults, overrides, and data directory resolution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RESTADMIN_API_URL", "RESTADMIN_TOKEN_URL", "RESTADMIN_USER_INFO_URL",
		"RESTADMIN_SESSION_DB", "RESTADMIN_PORT", "RESTADMIN_DB_PATH",
		"RESTADMIN_LOG_LEVEL", "OPENAI_API_KEY", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
	}
	// Keep .env lookups and data paths inside the test sandbox.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dataHome := os.Getenv("XDG_DATA_HOME")

	cfg := Load()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"port", cfg.Port, DefaultPort},
		{"log level", cfg.LogLevel, DefaultLogLevel},
		{"api url", cfg.APIURL, "http://localhost:9000"},
		{"token url", cfg.TokenURL, "http://localhost:9000/api-token-auth/"},
		{"user info url", cfg.UserInfoURL, "http://localhost:9000/users/"},
		{"session db", cfg.SessionDB, filepath.Join(dataHome, "restadmin", "session.db")},
		{"db path", cfg.DBPath, filepath.Join(dataHome, "restadmin", "restadmin.db")},
		{"openai key", cfg.OpenAIAPIKey, ""},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESTADMIN_API_URL", "https://api.example.com/")
	t.Setenv("RESTADMIN_PORT", "8123")
	t.Setenv("RESTADMIN_DB_PATH", "  /tmp/custom.db  ")
	t.Setenv("RESTADMIN_USER_INFO_URL", "https://auth.example.com/me/")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()

	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("APIURL = %q, trailing slash should be trimmed", cfg.APIURL)
	}
	if cfg.TokenURL != "https://api.example.com/api-token-auth/" {
		t.Errorf("TokenURL = %q", cfg.TokenURL)
	}
	if cfg.UserInfoURL != "https://auth.example.com/me/" {
		t.Errorf("UserInfoURL = %q", cfg.UserInfoURL)
	}
	if cfg.Port != "8123" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("OpenAIAPIKey = %q", cfg.OpenAIAPIKey)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// Empty variables count as set, so unset them for .env to apply.
	// t.Setenv in clearEnv restores them afterwards.
	os.Unsetenv("RESTADMIN_PORT")
	os.Unsetenv("RESTADMIN_LOG_LEVEL")
	t.Setenv("RESTADMIN_API_URL", "https://from-env.example.com")

	content := "RESTADMIN_PORT=7777\nRESTADMIN_LOG_LEVEL=debug\nRESTADMIN_API_URL=https://from-dotenv.example.com\n"
	if err := os.WriteFile(".env", []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.Port != "7777" {
		t.Errorf("Port = %q, want value from .env", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want value from .env", cfg.LogLevel)
	}
	if cfg.APIURL != "https://from-env.example.com" {
		t.Errorf("APIURL = %q, environment should win over .env", cfg.APIURL)
	}
}

func TestDefaultDBPath_PrefersExistingCwdFile(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile("restadmin.db", nil, 0600); err != nil {
		t.Fatal(err)
	}
	if got := DefaultDBPath(); got != "./restadmin.db" {
		t.Errorf("DefaultDBPath() = %q, want ./restadmin.db", got)
	}
}
