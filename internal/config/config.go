package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/okten/crm-api/internal/token"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Token lifetimes are given as duration
// strings ("15m", "7d") and parsed with token.ParseLifetime; an unset
// lifetime falls back to 30 minutes rather than refusing to start.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to sign JWTs
	AccessTokenTTL  time.Duration // access token lifetime
	RefreshTokenTTL time.Duration // refresh token lifetime
	RecoveryTTL     time.Duration // recovery/activation token lifetime
	BcryptCost      int           // bcrypt cost for password hashing
	AppBaseURL      string        // base URL used to build activation links
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		AccessTokenTTL:  mustLifetime("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: mustLifetime("REFRESH_TOKEN_TTL"),
		RecoveryTTL:     mustLifetime("RECOVERY_TOKEN_TTL"),
		BcryptCost:      mustInt("BCRYPT_COST"),
		AppBaseURL:      must("APP_BASE_URL"),
	}
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

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustLifetime parses a duration string like "15m" or "7d". An unset
// variable is tolerated (ParseLifetime applies its default); a malformed
// one is fatal.
func mustLifetime(key string) time.Duration {
	d, err := token.ParseLifetime(os.Getenv(key))
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, os.Getenv(key))
	}
	return d
}
