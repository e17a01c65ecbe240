package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors before the zap logger exists
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-configs for cache, rate limiting, Redis and
// RabbitMQ are loaded by their own Load* functions.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to sign session tokens
	SessionTTL      time.Duration // lifetime of the session cookie and its token
	CookieSecure    bool          // mark the session cookie Secure
	BcryptCost      int           // bcrypt cost for password hashing
	RequireVerified bool          // reject sign-in for users that are not verified
	LogLevel        string        // zap level name
	ReportLocation  *time.Location
}

// Load reads .env (when present) and then the process environment.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          envStr("DB_PORT", "3306"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		SessionTTL:      envDur("SESSION_TTL", 24*time.Hour),
		CookieSecure:    envBool("COOKIE_SECURE", false),
		BcryptCost:      mustInt("BCRYPT_COST"),
		RequireVerified: envBool("AUTH_REQUIRE_VERIFIED", false),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		ReportLocation:  loadLocation(os.Getenv("REPORT_TIMEZONE")),
	}
}

// DB holds the database settings alone, for commands such as migrate
// that must not require the HTTP secrets.
type DB struct {
	User, Pass, Host, Port, Name string
}

// LoadDB reads .env and the DB_* variables.
func LoadDB() DB {
	_ = godotenv.Load()
	return DB{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"),
		Host: must("DB_HOST"),
		Port: envStr("DB_PORT", "3306"),
		Name: must("DB_NAME"),
	}
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

// loadLocation resolves REPORT_TIMEZONE.  An empty or unknown name falls back
// to the server's local zone.
func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config: unknown REPORT_TIMEZONE %q, using local time", name)
		return time.Local
	}
	return loc
}

// must retrieves the value of a required environment variable.  If the
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
