// Package config provides centralized default values for PulseTrack
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
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

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Configuration
	DatabasePath   string
	TursoDatabase  string
	TursoAuthToken string

	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int

	// Query thresholds
	SlowQueryThreshold time.Duration

	// Admin auth
	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	TokenTTL          time.Duration

	// Admin query paging
	DefaultQueryLimit int
	MaxQueryLimit     int

	// Collector defaults (mirrored by the embeddable SDK)
	VisitorCookieName   string
	SessionStorageKey   string
	VisitorCookieExpiry time.Duration
	FlushInterval       time.Duration
	MaxBufferedEvents   int

	// Email (optional)
	ResendAPIKey   string
	EmailFrom      string
	EmailFromName  string
	WelcomeEmailOn bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database Configuration
	DatabasePath = getEnvString("DATABASE_PATH", "pulsetrack.db")
	TursoDatabase = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")

	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)

	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// Admin auth
	AdminUsername = getEnvString("ADMIN_USERNAME", "admin")
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)

	// Admin query paging
	DefaultQueryLimit = getEnvInt("DEFAULT_QUERY_LIMIT", 50)
	MaxQueryLimit = getEnvInt("MAX_QUERY_LIMIT", 200)

	// Collector defaults
	VisitorCookieName = getEnvString("VISITOR_COOKIE_NAME", "pt_vid")
	SessionStorageKey = getEnvString("SESSION_STORAGE_KEY", "pt_sid")
	VisitorCookieExpiry = time.Duration(getEnvInt("VISITOR_COOKIE_EXPIRY_DAYS", 365)) * 24 * time.Hour
	FlushInterval = getEnvDuration("FLUSH_INTERVAL", 5*time.Second)
	MaxBufferedEvents = getEnvInt("MAX_BUFFERED_EVENTS", 500)

	// Email
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFrom = getEnvString("EMAIL_FROM", "noreply@pulsetrack.dev")
	EmailFromName = getEnvString("EMAIL_FROM_NAME", "PulseTrack")
	WelcomeEmailOn = getEnvString("WELCOME_EMAIL_ENABLED", "false") == "true"
}
