package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// timeouts.
type Config struct {
    Env           string        // application environment (e.g. "dev", "prod")
    Port          string        // HTTP port to listen on
    DBUser        string        // database username
    DBPass        string        // database password (optional)
    DBHost        string        // database host address
    DBPort        string        // database port number
    DBName        string        // database name
    JWTSecret     string        // secret used to verify advertiser JWTs
    HoldTTL       time.Duration // how long acquired holds block inventory
    SweepInterval time.Duration // how often the expiry sweeper runs
    DraftTTL      time.Duration // how long abandoned draft selections linger in Redis
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Durations default
// when unset: holds live 600s, the sweeper runs every 15s and drafts are
// kept for 7 days.
func Load() Config {
    return Config{
        Env:           must("APP_ENV"),      // environment (dev/test/prod)
        Port:          must("APP_PORT"),     // port to bind the HTTP server
        DBUser:        must("DB_USER"),      // database user
        DBPass:        os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:        must("DB_HOST"),      // database host
        DBPort:        must("DB_PORT"),      // database port
        DBName:        must("DB_NAME"),      // database name
        JWTSecret:     must("JWT_SECRET"),   // secret shared with the identity service
        HoldTTL:       dur("HOLD_TTL", 600*time.Second),
        SweepInterval: dur("HOLD_SWEEP_INTERVAL", 15*time.Second),
        DraftTTL:      dur("DRAFT_TTL", 7*24*time.Hour),
    }
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

// dur reads an optional duration variable, accepting either a Go duration
// string ("10m") or a plain number of seconds ("600").
func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if d, err := time.ParseDuration(v); err == nil && d > 0 {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil && n > 0 {
        return time.Duration(n) * time.Second
    }
    log.Fatalf("invalid duration for %s: %q", key, v)
    return def
}
