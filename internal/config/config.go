// ABOUTME: Environment and .env configuration for the restadmin CLI.
// ABOUTME: Resolves client endpoints, backend settings, and XDG data paths.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort     = "9000"
	DefaultLogLevel = "info"
	appName         = "restadmin"
)

// Config holds the resolved settings. Cobra flags override these values.
type Config struct {
	// Client side
	APIURL      string
	TokenURL    string
	UserInfoURL string
	SessionDB   string

	// Fake backend
	Port   string
	DBPath string

	LogLevel     string
	OpenAIAPIKey string
	OpenAIModel  string
}

// Load reads .env files, then the environment. Values already set in the
// environment are never overwritten by .env files.
func Load() *Config {
	loadDotEnv()

	cfg := &Config{
		Port:         getEnv("RESTADMIN_PORT", DefaultPort),
		LogLevel:     getEnv("RESTADMIN_LOG_LEVEL", DefaultLogLevel),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  os.Getenv("OPENAI_MODEL"),
	}
	cfg.APIURL = strings.TrimRight(getEnv("RESTADMIN_API_URL", "http://localhost:"+cfg.Port), "/")
	cfg.TokenURL = getEnv("RESTADMIN_TOKEN_URL", cfg.APIURL+"/api-token-auth/")
	cfg.UserInfoURL = getEnv("RESTADMIN_USER_INFO_URL", cfg.APIURL+"/users/")
	cfg.SessionDB = getEnv("RESTADMIN_SESSION_DB", "")
	if cfg.SessionDB == "" {
		cfg.SessionDB = DataPath("session.db")
	}
	cfg.DBPath = envPath("RESTADMIN_DB_PATH")
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg
}

// loadDotEnv tries .env in the current dir or its parents, then the home directory.
func loadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// envPath returns a cleaned path from the environment, or "" when unset or invalid.
func envPath(key string) string {
	p := strings.TrimSpace(os.Getenv(key))
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// DefaultDBPath returns the fake backend database path.
// Priority: ./restadmin.db (if it exists) > XDG_DATA_HOME/restadmin/restadmin.db
func DefaultDBPath() string {
	cwdPath := "./" + appName + ".db"
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}
	return DataPath(appName + ".db")
}

// DataPath returns name inside the platform data directory, creating the
// directory when needed. It falls back to the current directory when the
// data directory is unusable.
func DataPath(name string) string {
	fallback := "./" + name

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			return fallback
		}

		// Windows: %LOCALAPPDATA% or ~/AppData/Local
		// Unix/Linux/macOS: ~/.local/share
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dir := filepath.Join(dataHome, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fallback
	}

	testFile := filepath.Join(dir, ".write-test")
	f, err := os.Create(testFile)
	if err != nil {
		return fallback
	}
	f.Close()
	os.Remove(testFile)

	return filepath.Join(dir, name)
}
