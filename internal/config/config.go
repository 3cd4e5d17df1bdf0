package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	TextProviderGemini = "gemini"
	TextProviderOpenAI = "openai"

	StateMemory   = "memory"
	StatePostgres = "postgres"
	StateRedis    = "redis"

	MediaLocal    = "local"
	MediaSupabase = "supabase"
	MediaMinIO    = "minio"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // empty = no auth, dev mode
	CorsAllowedOrigins string // comma-separated, empty = *

	// Gemini (script, chat, text and Veo)
	GeminiKey       string
	GeminiTextModel string
	VeoModel        string

	// Video polling
	VideoAspectRatio  string
	VideoPollInterval time.Duration
	VideoMaxPolls     int // 0 = poll until done

	// Text assistant for translate, spark, titles and summaries
	TextProvider string
	OpenAIKey    string
	OpenAIModel  string

	// ElevenLabs narration; translate-TTS when the key is empty
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// State
	StateBackend string
	DatabaseURL  string
	RedisURL     string // job queue; empty = in-process dispatch

	// Media
	MediaBackend string
	MediaDir     string
	MediaBaseURL string

	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	DirectorStylesFile string

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		GeminiTextModel:       getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		VeoModel:              getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		VideoAspectRatio:      getEnv("VIDEO_ASPECT_RATIO", "16:9"),
		VideoPollInterval:     getEnvDuration("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoMaxPolls:         getEnvInt("VIDEO_MAX_POLLS", 0),
		TextProvider:          getEnv("TEXT_PROVIDER", TextProviderGemini),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ElevenLabsKey:         getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:     getEnv("ELEVENLABS_VOICE_ID", ""),
		StateBackend:          getEnv("STATE_BACKEND", StateMemory),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		MediaBackend:          getEnv("MEDIA_BACKEND", MediaLocal),
		MediaDir:              getEnv("MEDIA_DIR", "./media"),
		MediaBaseURL:          getEnv("MEDIA_BASE_URL", "/media"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "storyboard-media"),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:           getEnv("MINIO_BUCKET", "storyboard-media"),
		MinIOUseSSL:           getEnvBool("MINIO_USE_SSL", false),
		DirectorStylesFile:    getEnv("DIRECTOR_STYLES_FILE", ""),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys for the selected backends.
func (c *Config) Validate() error {
	if c.GeminiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	switch c.TextProvider {
	case TextProviderGemini:
	case TextProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TEXT_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown TEXT_PROVIDER %q", c.TextProvider)
	}

	switch c.StateBackend {
	case StateMemory:
	case StatePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STATE_BACKEND=postgres")
		}
	case StateRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STATE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}

	switch c.MediaBackend {
	case MediaLocal:
		if c.MediaDir == "" {
			return fmt.Errorf("MEDIA_DIR is required when MEDIA_BACKEND=local")
		}
	case MediaSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when MEDIA_BACKEND=supabase")
		}
	case MediaMinIO:
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MEDIA_BACKEND=minio")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}

	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	if c.VideoMaxPolls < 0 {
		return fmt.Errorf("VIDEO_MAX_POLLS must not be negative")
	}
	if c.MaxConcurrentJobs < 1 {
		c.MaxConcurrentJobs = 1
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10s") or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
