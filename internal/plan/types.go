package plan

import "fmt"

// SceneDescriptor is one planned clip. Order is significant: descriptors
// are consumed strictly in sequence for clip index assignment and final
// concatenation order.
type SceneDescriptor struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
	Label    string `json:"label,omitempty"`
	// ImagePath is the reference image assigned to this scene, empty
	// when the clip is generated from text alone.
	ImagePath string `json:"image_path,omitempty"`
}

// Density is the shot-density setting controlling the clip-count target.
type Density string

const (
	DensitySparse    Density = "sparse"
	DensityBalanced  Density = "balanced"
	DensityDense     Density = "dense"
	DensityVeryDense Density = "very_dense"
)

// Multiplier scales the base clip count. Unknown densities behave as
// balanced.
func (d Density) Multiplier() float64 {
	switch d {
	case DensitySparse:
		return 0.5
	case DensityDense:
		return 1.5
	case DensityVeryDense:
		return 2.0
	default:
		return 1.0
	}
}

// ShotFormat tags how a custom shot list derives position and timing.
type ShotFormat string

const (
	// ShotFormatFreeform shots are distributed evenly across the plan.
	ShotFormatFreeform ShotFormat = "freeform"
	// ShotFormatTimeRanges shots are pinned to explicit time spans.
	ShotFormatTimeRanges ShotFormat = "time_ranges"
	// ShotFormatContentCues shots are pinned where the transcript
	// mentions their trigger phrase.
	ShotFormatContentCues ShotFormat = "content_cues"
	// ShotFormatSequence shots keep their given order, distributed
	// across the plan.
	ShotFormatSequence ShotFormat = "sequence"
)

// CustomShot is one user-specified shot. Which fields are meaningful
// depends on the list format.
type CustomShot struct {
	Description string  `json:"description" yaml:"description"`
	Start       float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End         float64 `json:"end,omitempty" yaml:"end,omitempty"`
	Trigger     string  `json:"trigger,omitempty" yaml:"trigger,omitempty"`
}

// ShotList is a user-supplied set of shots that must all appear in the
// final plan.
type ShotList struct {
	Format ShotFormat   `json:"format" yaml:"format"`
	Shots  []CustomShot `json:"shots" yaml:"shots"`
}

// PlanningError reports a malformed or unusable scene plan. The whole
// planning stage fails rather than proceeding with a partially-invalid
// plan.
type PlanningError struct {
	Message string
	Cause   error
}

func (e *PlanningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("planning: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("planning: %s", e.Message)
}

func (e *PlanningError) Unwrap() error {
	return e.Cause
}

// Request carries the planning directives for one job.
type Request struct {
	Style         string
	Density       Density
	Consistency   int // 0-100
	CameraMotion  string
	TotalDuration float64
	Shots         *ShotList
}
