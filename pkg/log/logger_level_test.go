package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLogger_SetLevel(t *testing.T) {
	logger := NewLogger(LevelInfo)
	assert.Equal(t, LevelInfo, logger.level)

	logger.SetLevel(LevelError)
	assert.Equal(t, LevelError, logger.level)
}
