package config

import (
	"fmt"
	"time"

	"github.com/clearterms/clearterms-backend/internal/platform/envutil"
)

// Config is built once at startup and passed by reference into the services
// and reapers. Nothing reads the environment after FromEnv returns.
type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiBaseURL string
	// Models is the fallback chain: primary first, tried in order.
	Models       []string
	ModelTimeout time.Duration

	SupportedLanguages []string
	DefaultLanguage    string

	MinContentLength int
	MaxContentLength int

	CacheMaxEntries   int
	CacheTTL          time.Duration
	CacheReapInterval time.Duration

	JobRetention    time.Duration
	JobReapInterval time.Duration

	QueueSize   int
	WorkerCount int

	RequireDetectedLanguage bool
	PromptTemplatePath      string
}

func FromEnv() (*Config, error) {
	apiKey := envutil.String("GEMINI_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	primary := envutil.String("GEMINI_MODEL", "gemini-2.0-flash-exp")
	fallbacks := envutil.List("GEMINI_FALLBACK_MODELS", []string{"gemini-2.5-flash", "gemini-flash-latest"})
	models := append([]string{primary}, fallbacks...)

	cfg := &Config{
		Port: envutil.String("PORT", "3000"),

		GeminiAPIKey:  apiKey,
		GeminiBaseURL: envutil.String("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		Models:        models,
		ModelTimeout:  time.Duration(envutil.Int("GEMINI_TIMEOUT_SECONDS", 60)) * time.Second,

		SupportedLanguages: envutil.List("SUPPORTED_LANGUAGES", []string{"fr", "en"}),
		DefaultLanguage:    envutil.String("DEFAULT_LANGUAGE", "fr"),

		MinContentLength: envutil.Int("MIN_CONTENT_LENGTH", 100),
		MaxContentLength: envutil.Int("MAX_CONTENT_LENGTH", 500000),

		CacheMaxEntries:   envutil.Int("CACHE_MAX_ENTRIES", 1000),
		CacheTTL:          envutil.Duration("CACHE_TTL", 24*time.Hour),
		CacheReapInterval: envutil.Duration("CACHE_REAP_INTERVAL", time.Hour),

		JobRetention:    envutil.Duration("JOB_RETENTION", time.Hour),
		JobReapInterval: envutil.Duration("JOB_REAP_INTERVAL", 10*time.Minute),

		QueueSize:   envutil.Int("QUEUE_SIZE", 64),
		WorkerCount: envutil.Int("WORKER_COUNT", 4),

		RequireDetectedLanguage: envutil.Bool("REQUIRE_DETECTED_LANGUAGE", true),
		PromptTemplatePath:      envutil.String("PROMPT_TEMPLATE_PATH", ""),
	}

	if !contains(cfg.SupportedLanguages, cfg.DefaultLanguage) {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE %q is not in SUPPORTED_LANGUAGES %v", cfg.DefaultLanguage, cfg.SupportedLanguages)
	}
	if cfg.MinContentLength <= 0 || cfg.MaxContentLength < cfg.MinContentLength {
		return nil, fmt.Errorf("invalid content length bounds [%d, %d]", cfg.MinContentLength, cfg.MaxContentLength)
	}

	return cfg, nil
}

// NormalizeLanguage maps an arbitrary client preference onto the supported
// set, falling back to the default language.
func (c *Config) NormalizeLanguage(lang string) string {
	if contains(c.SupportedLanguages, lang) {
		return lang
	}
	return c.DefaultLanguage
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
