package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LTX_API_KEY", "ltxv-test")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Speech.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "whisper-1", cfg.Speech.Model)
	assert.Equal(t, "ltx-2-fast", cfg.Video.Model)
	assert.Equal(t, "1920x1080", cfg.Video.Resolution)
	assert.Equal(t, 25, cfg.Video.FPS)
	assert.Equal(t, 3, cfg.Pipeline.ClipWorkers)
	assert.Equal(t, int64(20*1024*1024), cfg.Speech.MaxUploadBytes)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_API_KEY", "sk-planner")
	t.Setenv("LTX_API_KEY", "ltxv-test")
	t.Setenv("LTX_MODEL", "ltx-2-pro")
	t.Setenv("LTX_FPS", "50")
	t.Setenv("CLIP_WORKERS", "5")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sk-planner", cfg.LLM.APIKey)
	assert.Equal(t, "ltx-2-pro", cfg.Video.Model)
	assert.Equal(t, 50, cfg.Video.FPS)
	assert.Equal(t, 5, cfg.Pipeline.ClipWorkers)
}

func TestNewFromEnv_MissingVideoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LTX_API_KEY", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LTX_API_KEY")
}
