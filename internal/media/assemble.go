package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/forge-media/forge/pkg/log"
)

// Concatenate stream-copies the ordered clips into a single file. All
// inputs must share codec parameters; the pipeline guarantees this by
// requesting identical resolution and fps for every clip of a job.
func (tc Toolchain) Concatenate(ctx context.Context, clipPaths []string, out string) error {
	if len(clipPaths) == 0 {
		return &AssemblyError{Op: "concatenate", Message: "no input clips"}
	}
	for _, path := range clipPaths {
		if _, err := os.Stat(path); err != nil {
			return &AssemblyError{Op: "concatenate", Message: fmt.Sprintf("missing input %s", path), Cause: err}
		}
	}

	listPath := out + ".txt"
	var list strings.Builder
	for _, path := range clipPaths {
		fmt.Fprintf(&list, "file '%s'\n", path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return &AssemblyError{Op: "concatenate", Message: "write concat list", Cause: err}
	}
	defer func() {
		if err := os.Remove(listPath); err != nil {
			log.Warn("Failed to remove concat list %s: %v", listPath, err)
		}
	}()

	cmdPath, err := exec.LookPath(tc.ffmpegCmd)
	if err != nil {
		return &AssemblyError{Op: "concatenate", Message: "ffmpeg not found", Cause: err}
	}

	cmd := exec.CommandContext(ctx, cmdPath, tc.concatArgs(listPath, out)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return &AssemblyError{Op: "concatenate", Message: tail(output), Cause: err}
	}
	return nil
}

// MergeAudio muxes the original audio track onto the assembled video.
// Only the audio track is re-encoded; -shortest truncates to the shorter
// stream so the result has no trailing silence or frozen frames.
func (tc Toolchain) MergeAudio(ctx context.Context, videoPath, audioPath, out string) error {
	for _, path := range []string{videoPath, audioPath} {
		if _, err := os.Stat(path); err != nil {
			return &AssemblyError{Op: "merge-audio", Message: fmt.Sprintf("missing input %s", path), Cause: err}
		}
	}

	cmdPath, err := exec.LookPath(tc.ffmpegCmd)
	if err != nil {
		return &AssemblyError{Op: "merge-audio", Message: "ffmpeg not found", Cause: err}
	}

	cmd := exec.CommandContext(ctx, cmdPath, tc.mergeArgs(videoPath, audioPath, out)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return &AssemblyError{Op: "merge-audio", Message: tail(output), Cause: err}
	}
	return nil
}

func (tc Toolchain) concatArgs(listPath, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		out,
	}
}

func (tc Toolchain) mergeArgs(videoPath, audioPath, out string) []string {
	return []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		out,
	}
}
