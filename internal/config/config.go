// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database paths, rate limiting, observability, and the governance
// engine settings (oracle client, lifecycle sweep, load monitor, ranking).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-boost-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// OracleConfig defines the price oracle client settings.
type OracleConfig struct {
	Endpoint       string        // ORACLE_ENDPOINT: HTTP price source
	APIKey         string        // ORACLE_API_KEY: optional bearer token
	MaxAttempts    int           // ORACLE_MAX_ATTEMPTS: retry budget per fetch
	AttemptTimeout time.Duration // ORACLE_ATTEMPT_TIMEOUT: hard cap per attempt
	BackoffBase    time.Duration // ORACLE_BACKOFF_BASE: first retry delay
	StaleAfter     time.Duration // ORACLE_STALE_AFTER: age that triggers recovery mode
	RefreshEvery   time.Duration // ORACLE_REFRESH_EVERY: background cache refresh
}

// EngineConfig defines the boost governance engine settings.
type EngineConfig struct {
	Tolerance       int64         // PRICE_TOLERANCE_CENTS: allowed deviation from the global rate
	SweepInterval   time.Duration // SWEEP_INTERVAL: lifecycle sweep cadence
	LoadSampleEvery time.Duration // LOAD_SAMPLE_EVERY: system load sampling cadence
	LoadSensitivity float64       // LOAD_SENSITIVITY: how hard load dampens boost bonuses
	RankWindowSize  int           // RANK_WINDOW_SIZE: default fairness window (top-N)
	MinDuration     time.Duration // BOOST_MIN_DURATION: shortest purchasable boost
	MaxDuration     time.Duration // BOOST_MAX_DURATION: longest purchasable boost
}

// LedgerConfig defines the external ledger gateway settings.
type LedgerConfig struct {
	Endpoint string        // LEDGER_ENDPOINT: HTTP debit API
	APIKey   string        // LEDGER_API_KEY: optional bearer token
	Timeout  time.Duration // LEDGER_TIMEOUT: per-call deadline
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Engine
	Oracle OracleConfig
	Engine EngineConfig
	Ledger LedgerConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "boost.db"),

		// Engine
		Oracle: OracleConfig{
			Endpoint:       getenv("ORACLE_ENDPOINT", "http://localhost:9090/rates"),
			APIKey:         getenv("ORACLE_API_KEY", ""),
			MaxAttempts:    getint("ORACLE_MAX_ATTEMPTS", 3),
			AttemptTimeout: getdur("ORACLE_ATTEMPT_TIMEOUT", 2*time.Second),
			BackoffBase:    getdur("ORACLE_BACKOFF_BASE", 100*time.Millisecond),
			StaleAfter:     getdur("ORACLE_STALE_AFTER", 5*time.Minute),
			RefreshEvery:   getdur("ORACLE_REFRESH_EVERY", 30*time.Second),
		},
		Engine: EngineConfig{
			Tolerance:       int64(getint("PRICE_TOLERANCE_CENTS", 10)),
			SweepInterval:   getdur("SWEEP_INTERVAL", 5*time.Second),
			LoadSampleEvery: getdur("LOAD_SAMPLE_EVERY", 10*time.Second),
			LoadSensitivity: getfloat("LOAD_SENSITIVITY", 1.0),
			RankWindowSize:  getint("RANK_WINDOW_SIZE", 10),
			MinDuration:     getdur("BOOST_MIN_DURATION", time.Minute),
			MaxDuration:     getdur("BOOST_MAX_DURATION", 7*24*time.Hour),
		},
		Ledger: LedgerConfig{
			Endpoint: getenv("LEDGER_ENDPOINT", "http://localhost:9091/debit"),
			APIKey:   getenv("LEDGER_API_KEY", ""),
			Timeout:  getdur("LEDGER_TIMEOUT", 5*time.Second),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-boost-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Oracle.Endpoint) == "" {
		return cfg, errors.New("ORACLE_ENDPOINT must not be empty")
	}
	if cfg.Oracle.MaxAttempts < 1 {
		return cfg, errors.New("ORACLE_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Oracle.AttemptTimeout <= 0 || cfg.Oracle.StaleAfter <= 0 || cfg.Oracle.RefreshEvery <= 0 {
		return cfg, errors.New("oracle durations must be positive")
	}
	if cfg.Engine.Tolerance < 0 {
		return cfg, errors.New("PRICE_TOLERANCE_CENTS must be >= 0")
	}
	if cfg.Engine.SweepInterval <= 0 {
		return cfg, errors.New("SWEEP_INTERVAL must be > 0")
	}
	if cfg.Engine.LoadSensitivity < 0 {
		return cfg, errors.New("LOAD_SENSITIVITY must be >= 0")
	}
	if cfg.Engine.RankWindowSize < 1 {
		return cfg, errors.New("RANK_WINDOW_SIZE must be >= 1")
	}
	if cfg.Engine.MinDuration <= 0 || cfg.Engine.MaxDuration < cfg.Engine.MinDuration {
		return cfg, errors.New("boost duration bounds are inconsistent")
	}
	if strings.TrimSpace(cfg.Ledger.Endpoint) == "" {
		return cfg, errors.New("LEDGER_ENDPOINT must not be empty")
	}
	if cfg.Ledger.Timeout <= 0 {
		return cfg, errors.New("LEDGER_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
