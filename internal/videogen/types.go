package videogen

import (
	"fmt"
	"strings"
)

const (
	// BaselineResolution is the only resolution the provider serves at
	// full catalog durations.
	BaselineResolution = "1920x1080"
	// HighTierFPS triggers the provider's reduced duration ceiling.
	HighTierFPS = 50
	// CappedDurationSeconds is the ceiling for pro-model, off-baseline
	// resolution, or high-fps requests.
	CappedDurationSeconds = 10
)

// Settings are the provider parameters shared by every clip of a job.
// Identical resolution and fps across clips keeps the concatenation
// precondition satisfied.
type Settings struct {
	Model      string `json:"model"`
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
	// StyleNotes are prepended to every clip prompt.
	StyleNotes string `json:"style_notes,omitempty"`
	// AnimationDirection is prepended for image-conditioned clips only.
	AnimationDirection string `json:"animation_direction,omitempty"`
}

// Clip is one generated video segment. SceneIndex matches the scene
// descriptor order and drives final concatenation order.
type Clip struct {
	SceneIndex int    `json:"scene_index"`
	Path       string `json:"path"`
	Duration   int    `json:"duration"`
}

// AssignMode selects how reference images map onto scenes.
type AssignMode string

const (
	AssignCycle     AssignMode = "cycle"
	AssignRandom    AssignMode = "random"
	AssignFirstOnly AssignMode = "first_only"
)

// GenerationError reports a failed or timed-out clip generation.
type GenerationError struct {
	SceneIndex int
	Message    string
	Cause      error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generate clip %d: %s: %v", e.SceneIndex, e.Message, e.Cause)
	}
	return fmt.Sprintf("generate clip %d: %s", e.SceneIndex, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// isProModel reports whether the model name is a pro tier variant.
func isProModel(model string) bool {
	return strings.HasSuffix(model, "-pro")
}

// EffectiveDuration applies the provider capacity constraint: pro
// models, non-baseline resolutions and high-tier fps are capped at 10
// seconds. Applied after catalog quantization, before dispatch.
func EffectiveDuration(planned int, s Settings) int {
	if isProModel(s.Model) || s.Resolution != BaselineResolution || s.FPS == HighTierFPS {
		if planned > CappedDurationSeconds {
			return CappedDurationSeconds
		}
	}
	return planned
}

// ComposePrompt concatenates the prompt parts in their required order:
// style notes, then animation direction (image clips only), then the
// scene's own text. Scene content stays last so the provider's recency
// weighting favors it.
func ComposePrompt(s Settings, hasImage bool, scenePrompt string) string {
	parts := make([]string, 0, 3)
	if strings.TrimSpace(s.StyleNotes) != "" {
		parts = append(parts, strings.TrimSpace(s.StyleNotes))
	}
	if hasImage && strings.TrimSpace(s.AnimationDirection) != "" {
		parts = append(parts, strings.TrimSpace(s.AnimationDirection))
	}
	parts = append(parts, strings.TrimSpace(scenePrompt))
	return strings.Join(parts, ". ")
}
