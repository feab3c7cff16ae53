// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Default settings for the reconciliation worker.  Any non-positive or
// non-numeric interval value falls back to the default.
const (
	DefaultReconcileIntervalMS = 60000
	DefaultGraceMinutes        = 15
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Required variables are
// enforced by must(); worker settings default instead of failing so a
// bare environment still runs the reconciler with sane values.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify bearer tokens

	ReconcileEnabled  bool          // whether the reconciliation worker runs
	ReconcileInterval time.Duration // time between reconciliation passes
	GraceMinutes      int           // minutes after class start before reconciliation/auto-close
}

// Load reads configuration values from environment variables and
// returns a Config.  Missing required values cause the program to exit
// with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		ReconcileEnabled:  envBool("RECONCILE_ENABLED", true),
		ReconcileInterval: reconcileInterval(),
		GraceMinutes:      envPositiveInt("RECONCILE_GRACE_MIN", DefaultGraceMinutes),
	}
}

// reconcileInterval reads RECONCILE_INTERVAL_MS.  Unset, unparsable and
// non-positive values all fall back to the default.
func reconcileInterval() time.Duration {
	ms := envPositiveInt("RECONCILE_INTERVAL_MS", DefaultReconcileIntervalMS)
	return time.Duration(ms) * time.Millisecond
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

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}

func envPositiveInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
