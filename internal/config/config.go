// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime configuration of the API server. Each field maps
// to one environment variable; see Load for names and defaults.
type Config struct {
	Env  string // APP_ENV (dev, test, prod)
	Port string // APP_PORT

	LogLevel string // LOG_LEVEL

	DBDriver   string // DB_DRIVER: mysql or sqlite
	DBUser     string
	DBPass     string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string

	JWTSecret  string
	SessionTTL time.Duration
	BcryptCost int

	// CheckinSkipWindow disables the check-in time gate. Only for
	// development servers; the server logs a warning at startup when set.
	CheckinSkipWindow bool

	ArtifactDir     string // root of the boarding pass cache
	FontDir         string // optional directory with custom boarding pass fonts
	CleanupInterval time.Duration
	CleanupGrace    time.Duration
	EarlyBirdPrice  int

	AllowedOrigins []string
	BaseRedirect   string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// BotAPIToken, when set, is installed as the API token of the bot user
	// at startup so the bot can authenticate without a login round trip.
	BotUserID   string
	BotAPIToken string
}

// Load reads configuration values from the environment. Required variables
// are enforced by must() and a missing value terminates the process.
func Load() Config {
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8000"),
		LogLevel: envStr("LOG_LEVEL", "info"),
		DBDriver: strings.ToLower(envStr("DB_DRIVER", "mysql")),

		JWTSecret:  must("JWT_SECRET"),
		SessionTTL: time.Duration(envInt("SESSION_TTL_HOURS", 12)) * time.Hour,
		BcryptCost: envInt("BCRYPT_COST", 10),

		CheckinSkipWindow: envBool("CHECKIN_SKIP_WINDOW", false),

		ArtifactDir:     envStr("ARTIFACT_DIR", "images/cache/printed"),
		FontDir:         os.Getenv("FONT_DIR"),
		CleanupInterval: envDur("CLEANUP_INTERVAL", 20*time.Minute),
		CleanupGrace:    envDur("CLEANUP_GRACE", 2*time.Hour),
		EarlyBirdPrice:  envInt("EARLYBIRD_PRICE", 30000),

		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		BaseRedirect:   envStr("BASE_REDIRECT", "/"),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  os.Getenv("DISCORD_REDIRECT_URI"),

		BotUserID:   envStr("BOT_USER_ID", "1"),
		BotAPIToken: os.Getenv("BOT_API_TOKEN"),
	}

	switch cfg.DBDriver {
	case "sqlite":
		cfg.SQLitePath = envStr("SQLITE_PATH", "flightdeck.db")
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	return cfg
}

// IsDev reports whether the server runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
