package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Planner LLM Configuration:
// - LLM_API_KEY: API key for the text-generation provider (falls back to OPENAI_API_KEY)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_MODEL: Model name to use (default: gpt-4o)
// - LLM_MAX_TOKENS: Maximum tokens for planning responses (default: 4096)
// - LLM_TEMPERATURE: Temperature for planning responses (default: 0.7)
// - LLM_TIMEOUT: Request timeout in seconds (default: 90)
//
// Speech-to-text Configuration:
// - SPEECH_API_KEY: API key for transcription (falls back to OPENAI_API_KEY)
// - SPEECH_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - SPEECH_MODEL: Transcription model (default: whisper-1)
// - SPEECH_TIMEOUT: Request timeout in seconds (default: 120)
//
// Video Synthesis Configuration:
// - LTX_API_KEY: API key for the video-synthesis provider (required)
// - LTX_API_URL: API endpoint URL (default: https://api.ltx.video/v1)
// - LTX_MODEL: Default model (default: ltx-2-fast)
// - LTX_RESOLUTION: Default resolution (default: 1920x1080)
// - LTX_FPS: Default frame rate (default: 25)
// - LTX_TIMEOUT: Per-clip request timeout in seconds (default: 300)
//
// Pipeline Configuration:
// - WORK_DIR: Working directory for job artifacts (default: <tmp>/forge)
// - CLIP_WORKERS: Bounded parallelism for clip generation (default: 3)
// - JOB_WORKERS: Concurrent pipeline executions (default: 2)
//
// Job Store Configuration:
// - JOB_DB_PATH: SQLite database path; empty keeps jobs in memory only
// - JOB_RETENTION_HOURS: Terminal jobs older than this are pruned (default: 24)
// - JANITOR_CRON: Cron expression for the retention sweep (default: @hourly)
//
// HTTP Configuration:
// - HTTP_ADDR: Listen address (default: :8000)
// - LOG_LEVEL: DEBUG/INFO/WARN/ERROR (default: INFO)
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Speech   SpeechConfig   `json:"speech"`
	Video    VideoConfig    `json:"video"`
	Pipeline PipelineConfig `json:"pipeline"`
	Jobs     JobsConfig     `json:"jobs"`
	HTTP     HTTPConfig     `json:"http"`
	LogLevel string         `json:"log_level"`
}

// LLMConfig holds the configuration for the scene-planning LLM client
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

// SpeechConfig holds the configuration for the speech-to-text client
type SpeechConfig struct {
	APIKey         string `json:"api_key"`
	APIURL         string `json:"api_url"`
	Model          string `json:"model"`
	Timeout        int    `json:"timeout"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// VideoConfig holds the configuration for the video-synthesis client
type VideoConfig struct {
	APIKey     string `json:"api_key"`
	APIURL     string `json:"api_url"`
	Model      string `json:"model"`
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	Timeout    int    `json:"timeout"`
}

// PipelineConfig holds the orchestration configuration
type PipelineConfig struct {
	WorkDir     string `json:"work_dir"`
	ClipWorkers int    `json:"clip_workers"`
	JobWorkers  int    `json:"job_workers"`
}

// JobsConfig holds the job store and retention configuration
type JobsConfig struct {
	DBPath         string `json:"db_path"`
	RetentionHours int    `json:"retention_hours"`
	JanitorCron    string `json:"janitor_cron"`
}

// HTTPConfig holds the HTTP server configuration
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")

	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", openaiKey),
			APIURL:      getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Model:       getEnvString("LLM_MODEL", "gpt-4o"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4096),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:     getEnvInt("LLM_TIMEOUT", 90),
		},
		Speech: SpeechConfig{
			APIKey:         getEnvString("SPEECH_API_KEY", openaiKey),
			APIURL:         getEnvString("SPEECH_API_URL", "https://api.openai.com/v1"),
			Model:          getEnvString("SPEECH_MODEL", "whisper-1"),
			Timeout:        getEnvInt("SPEECH_TIMEOUT", 120),
			MaxUploadBytes: int64(getEnvInt("SPEECH_MAX_UPLOAD_BYTES", 20*1024*1024)),
		},
		Video: VideoConfig{
			APIKey:     getEnvString("LTX_API_KEY", ""),
			APIURL:     getEnvString("LTX_API_URL", "https://api.ltx.video/v1"),
			Model:      getEnvString("LTX_MODEL", "ltx-2-fast"),
			Resolution: getEnvString("LTX_RESOLUTION", "1920x1080"),
			FPS:        getEnvInt("LTX_FPS", 25),
			Timeout:    getEnvInt("LTX_TIMEOUT", 300),
		},
		Pipeline: PipelineConfig{
			WorkDir:     getEnvString("WORK_DIR", filepath.Join(os.TempDir(), "forge")),
			ClipWorkers: getEnvInt("CLIP_WORKERS", 3),
			JobWorkers:  getEnvInt("JOB_WORKERS", 2),
		},
		Jobs: JobsConfig{
			DBPath:         getEnvString("JOB_DB_PATH", ""),
			RetentionHours: getEnvInt("JOB_RETENTION_HOURS", 24),
			JanitorCron:    getEnvString("JANITOR_CRON", "@hourly"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8000"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "INFO"),
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Speech.APIKey == "" {
		return fmt.Errorf("SPEECH_API_KEY (or OPENAI_API_KEY) is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY (or OPENAI_API_KEY) is required")
	}
	if c.Video.APIKey == "" {
		return fmt.Errorf("LTX_API_KEY is required")
	}
	if c.Pipeline.ClipWorkers < 1 {
		return fmt.Errorf("CLIP_WORKERS must be at least 1")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
