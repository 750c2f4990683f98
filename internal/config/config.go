// Package config loads server configuration from the environment and the
// style catalog from config/styles.yaml.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds everything the server binary needs.
type Config struct {
	Server   ServerConfig
	Supabase SupabaseConfig
	Gemini   GeminiConfig
	Limits   LimitsConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR,default=:8080"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
}

// SupabaseConfig configures the managed auth/database backend.
type SupabaseConfig struct {
	URL        string `env:"SUPABASE_URL,required"`
	AnonKey    string `env:"SUPABASE_ANON_KEY,required"`
	ServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	JWTSecret  string `env:"SUPABASE_JWT_SECRET"`
	// Optional direct Postgres DSN; when set the library and credit stores
	// talk to the database directly instead of through PostgREST.
	DatabaseURL string `env:"SUPABASE_DB_URL"`
}

// GeminiConfig configures the AI image provider.
type GeminiConfig struct {
	APIKey         string `env:"GEMINI_API_KEY,required"`
	NarrationModel string `env:"GEMINI_NARRATION_MODEL,default=gemini-2.0-flash"`
	ImageModel     string `env:"GEMINI_IMAGE_MODEL,default=gemini-2.0-flash-exp-image-generation"`
}

// LimitsConfig holds request limits and generation timeouts.
type LimitsConfig struct {
	RatePerSecond      float64       `env:"RATE_LIMIT_PER_SECOND,default=2"`
	RateBurst          int           `env:"RATE_LIMIT_BURST,default=5"`
	GenerateTimeout    time.Duration `env:"GENERATE_TIMEOUT,default=90s"`
	ImprovementTimeout time.Duration `env:"IMPROVEMENT_TIMEOUT,default=120s"`
	SubscriptionTTL    time.Duration `env:"SUBSCRIPTION_CACHE_TTL,default=30s"`
}

// Load decodes the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
