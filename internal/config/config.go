// Package config loads the service's runtime configuration from .env
// plus environment variables, with an optional YAML file overriding the
// rate-limit tuning table (spec.md §6 "Configuration (environment)").
//
// Load order:
//  1. .env via godotenv (sensitive values, local overrides)
//  2. flat environment variables, each with a documented default
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment mode, read from NODE_ENV.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "development"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	Env  Environment
	Host string
	Port string

	MongoURI      string
	MongoDatabase string

	CORSOrigins []string

	RateLimitSessionMax    int
	RateLimitRecommendMax  int
	RateLimitFeedbackMax   int
	RateLimitBatchMax      int
	RateLimitGeneralMax    int
	RateLimitWindowSeconds int
	RateLimitTuningFile    string
	RateLimitWhitelist     []string

	CacheMaxSize int
	CacheTTL     time.Duration

	EnableAutoCleanup        bool
	CleanupSkipInProduction  bool

	FeatureDimensions int

	EnableDebugRoutes bool

	RedisURL string
}

var envPaths = []string{".env", "../.env", "../../.env"}

// Load loads .env (best-effort) then resolves the flat environment
// variable list. MONGODB_URI is required; Load calls os.Exit(1) with a
// message on stderr if it is missing, matching the teacher's fail-fast
// startup discipline.
func Load() *Config {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		fmt.Fprintln(os.Stderr, "config: MONGODB_URI is required")
		os.Exit(1)
	}

	cfg := &Config{
		Env:      parseEnv(getEnv("NODE_ENV", "development")),
		Host:     getEnv("HOST", "0.0.0.0"),
		Port:     getEnv("PORT", "3000"),
		MongoURI:      mongoURI,
		MongoDatabase: getEnv("MONGODB_DATABASE", "fashion_reco"),
		RedisURL:      os.Getenv("REDIS_URL"),

		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "*")),

		RateLimitSessionMax:    getEnvInt("RATE_LIMIT_SESSION_MAX", 5),
		RateLimitRecommendMax:  getEnvInt("RATE_LIMIT_RECOMMEND_MAX", 30),
		RateLimitFeedbackMax:   getEnvInt("RATE_LIMIT_FEEDBACK_MAX", 50),
		RateLimitBatchMax:      getEnvInt("RATE_LIMIT_BATCH_MAX", 10),
		RateLimitGeneralMax:    getEnvInt("RATE_LIMIT_GENERAL_MAX", 100),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitTuningFile:    os.Getenv("RATE_LIMIT_TUNING_FILE"),
		RateLimitWhitelist:     splitCSV(getEnv("RATE_LIMIT_WHITELIST", "")),

		CacheMaxSize: getEnvInt("CACHE_MAX_SIZE", 1000),
		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_MS", 300_000)) * time.Millisecond,

		EnableAutoCleanup:       getEnvBool("ENABLE_AUTO_CLEANUP", true),
		CleanupSkipInProduction: getEnvBool("CLEANUP_SKIP_IN_PRODUCTION", false),

		FeatureDimensions: getEnvInt("FEATURE_DIMENSIONS", 26),

		EnableDebugRoutes: getEnvBool("ENABLE_DEBUG_ROUTES", false),
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction reports whether c targets production.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// SkipCleanup reports whether the auto-cleanup maintenance task should
// be skipped, honoring both ENABLE_AUTO_CLEANUP and the production
// carve-out.
func (c *Config) SkipCleanup() bool {
	if !c.EnableAutoCleanup {
		return true
	}
	return c.CleanupSkipInProduction && c.IsProduction()
}

// String returns a config summary with the Mongo URI's credentials
// masked, for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Host: %s, Port: %s, Mongo: %s, Redis: %t}",
		c.Env, c.Host, c.Port, maskCredentials(c.MongoURI), c.RedisURL != "")
}

var credentialPattern = regexp.MustCompile(`(://[^:]+:)([^@]+)(@)`)

func maskCredentials(uri string) string {
	return credentialPattern.ReplaceAllString(uri, "${1}***${3}")
}
