// Package config provides centralized default values for the telemetry service
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		// godotenv.Load never overrides variables already present in the environment.
		if err := godotenv.Load(); err != nil {
			return
		}
		log.Println("Loaded configuration overrides from .env file")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var (
	// Server Configuration
	Port               string
	GinMode            string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSOrigins        []string
	AdminPassword      string

	// Attribution tracking is only active on the public deployment
	PublicMode bool

	// Cookie records
	CookieDomain   string
	CookieSecure   bool
	LongLivedTTL   time.Duration
	SessionTTL     time.Duration
	LegacyHeader   string
	AutomatedRegex string

	// Presence detection
	PresenceMarkerTimeout time.Duration
	PresencePollInterval  time.Duration
	PresenceWait          time.Duration

	// Page runtimes are kept per page instance and reused across its requests
	PageInstanceTTL time.Duration

	// Database
	DBDriver           string
	DBDSN              string
	SlowQueryThreshold time.Duration

	// Forwarding
	ForwardURL           string
	ForwardTimeout       time.Duration
	ForwardSigningSecret string

	// Logging
	LogDirectory string
	LogToFile    bool
	LogJSON      bool
	LogLevel     string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	GinMode = getEnvString("GIN_MODE", "debug")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSOrigins = getEnvList("CORS_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:4321",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:4321",
		"http://[::1]:3000",
		"http://[::1]:4321",
	})

	AdminPassword = getEnvString("ADMIN_PASSWORD", "")

	PublicMode = getEnvBool("TELEMETRY_PUBLIC_MODE", false)

	// Cookie records
	CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	CookieSecure = getEnvBool("COOKIE_SECURE", true)
	LongLivedTTL = time.Duration(getEnvInt("LONG_LIVED_TTL_DAYS", 365)) * 24 * time.Hour
	SessionTTL = time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute
	LegacyHeader = getEnvString("LEGACY_CLIENT_HEADER", "X-Legacy-Client")
	AutomatedRegex = getEnvString("BOT_USER_AGENT_PATTERN", "")

	// Presence detection
	PresenceMarkerTimeout = getEnvDuration("PRESENCE_MARKER_TIMEOUT", 5*time.Second)
	PresencePollInterval = getEnvDuration("PRESENCE_POLL_INTERVAL", 250*time.Millisecond)
	PresenceWait = getEnvDuration("PRESENCE_WAIT", 30*time.Second)

	PageInstanceTTL = getEnvDuration("PAGE_INSTANCE_TTL", 30*time.Minute)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBDSN = getEnvString("DB_DSN", "file:telemetry.db?_journal_mode=WAL")
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)

	// Forwarding
	ForwardURL = getEnvString("FORWARD_URL", "")
	ForwardTimeout = getEnvDuration("FORWARD_TIMEOUT", 5*time.Second)
	ForwardSigningSecret = getEnvString("FORWARD_SIGNING_SECRET", "")

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogJSON = getEnvBool("LOG_JSON", true)
	LogLevel = getEnvString("LOG_LEVEL", "info")
}
