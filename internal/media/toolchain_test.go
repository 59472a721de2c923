package media

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// installMockTool puts a shell script named name on PATH that echoes
// output and exits with code.
func installMockTool(t *testing.T, name, output string, code int) {
	t.Helper()

	mockDir := t.TempDir()
	script := "#!/bin/sh\necho '" + output + "'\nexit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(mockDir, name), []byte(script), 0o755))

	t.Setenv("PATH", mockDir+":"+os.Getenv("PATH"))
}

func TestToolchain_Duration(t *testing.T) {
	tests := []struct {
		name        string
		mockOutput  string
		exitCode    int
		expected    float64
		expectError bool
	}{
		{"plain seconds", "63.451000", 0, 63.451, false},
		{"trailing newline handled", "120.0", 0, 120, false},
		{"unparseable output", "N/A", 0, 0, true},
		{"non-positive duration", "0.0", 0, 0, true},
		{"probe failure", "", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installMockTool(t, "ffprobe", tt.mockOutput, tt.exitCode)

			seconds, err := NewToolchain().Duration("dummy.mp3")
			if tt.expectError {
				var probeErr *ProbeError
				require.Error(t, err)
				assert.True(t, errors.As(err, &probeErr))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, seconds, 0.001)
		})
	}
}

func TestToolchain_Duration_ProbeNotOnPath(t *testing.T) {
	t.Setenv("PATH", "")

	_, err := NewToolchain().Duration("dummy.mp3")
	var probeErr *ProbeError
	require.Error(t, err)
	assert.True(t, errors.As(err, &probeErr))
}

func TestToolchain_DurationArgs(t *testing.T) {
	args := NewToolchain().durationArgs("/audio/track.mp3")
	assert.Equal(t, []string{
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"/audio/track.mp3",
	}, args)
}

func TestToolchain_CompressArgs(t *testing.T) {
	args := NewToolchain().compressArgs("in.mp3", "out.m4a", 64)
	assert.Equal(t, []string{
		"-y",
		"-i", "in.mp3",
		"-b:a", "64k",
		"-ac", "1",
		"-ar", "16000",
		"out.m4a",
	}, args)
}

func TestTail_TruncatesLongOutput(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	got := tail(long)
	assert.Len(t, got, 403) // "..." + last 400 bytes
}
