package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/forge-media/forge/pkg/log"
)

// Toolchain wraps the local ffmpeg/ffprobe binaries. Command names are
// fields so tests can point them at mocks via PATH.
type Toolchain struct {
	ffmpegCmd  string
	ffprobeCmd string
}

func NewToolchain() Toolchain {
	return Toolchain{
		ffmpegCmd:  "ffmpeg",
		ffprobeCmd: "ffprobe",
	}
}

// Duration reports the duration of a local media file in seconds.
func (tc Toolchain) Duration(path string) (float64, error) {
	cmdPath, err := exec.LookPath(tc.ffprobeCmd)
	if err != nil {
		return 0, &ProbeError{Path: path, Cause: err}
	}

	cmd := exec.Command(cmdPath, tc.durationArgs(path)...)
	output, err := cmd.Output()
	if err != nil {
		log.Error("ffprobe failed for %s: %v", path, err)
		return 0, &ProbeError{Path: path, Cause: err}
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, &ProbeError{Path: path, Cause: fmt.Errorf("unparseable duration %q: %w", strings.TrimSpace(string(output)), err)}
	}
	if seconds <= 0 {
		return 0, &ProbeError{Path: path, Cause: fmt.Errorf("non-positive duration %f", seconds)}
	}
	return seconds, nil
}

// CompressAudio writes a mono, downsampled copy of src at the given bitrate.
// Used to fit oversized audio under the transcription provider's upload ceiling.
func (tc Toolchain) CompressAudio(ctx context.Context, src, dst string, bitrateKbps int) error {
	cmdPath, err := exec.LookPath(tc.ffmpegCmd)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdPath, tc.compressArgs(src, dst, bitrateKbps)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("compress %s: %w: %s", src, err, tail(output))
	}
	return nil
}

func (tc Toolchain) durationArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func (tc Toolchain) compressArgs(src, dst string, bitrateKbps int) []string {
	return []string{
		"-y",
		"-i", src,
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-ac", "1",
		"-ar", "16000",
		dst,
	}
}

// tail keeps the last part of tool output for error messages.
func tail(output []byte) string {
	s := strings.TrimSpace(string(output))
	const max = 400
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
