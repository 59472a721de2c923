package jobs

import "time"

// Stage is the job state machine position. Transitions are forward-only;
// completed and failed are terminal.
type Stage string

const (
	StagePending         Stage = "pending"
	StageProbing         Stage = "probing"
	StageTranscribing    Stage = "transcribing"
	StagePlanning        Stage = "planning"
	StageGeneratingClips Stage = "generating_clips"
	StageAssembling      Stage = "assembling"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

var stageRank = map[Stage]int{
	StagePending:         0,
	StageProbing:         1,
	StageTranscribing:    2,
	StagePlanning:        3,
	StageGeneratingClips: 4,
	StageAssembling:      5,
	StageCompleted:       6,
	StageFailed:          6,
}

// Terminal reports whether the stage accepts no further transitions.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// CanTransition reports whether moving from one stage to another is
// legal: never out of a terminal stage, into failed from anywhere else,
// otherwise only forward.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return stageRank[to] >= stageRank[from]
}

// GenerationRequest is the immutable input of a job. Custom shots and
// assignment modes are carried as plain data; the pipeline interprets
// them.
type GenerationRequest struct {
	AudioPath         string   `json:"audio_path"`
	Style             string   `json:"style"`
	StyleNotes        string   `json:"style_notes,omitempty"`
	PromptOverride    string   `json:"prompt_override,omitempty"`
	Model             string   `json:"model"`
	Resolution        string   `json:"resolution"`
	FPS               int      `json:"fps"`
	ShotDensity       string   `json:"shot_density,omitempty"`
	Consistency       int      `json:"consistency"`
	CameraMotion      string   `json:"camera_motion,omitempty"`
	CustomShots       []byte   `json:"custom_shots,omitempty"`
	CustomShotsFormat string   `json:"custom_shots_format,omitempty"`
	ReferenceImages   []string `json:"reference_images,omitempty"`
	ImageAssignMode   string   `json:"image_assign_mode,omitempty"`
}

// GenerationJob is one audio-to-video job. Mutated only by the queue
// executing it; readers always get snapshots.
type GenerationJob struct {
	ID         string            `json:"id"`
	Request    GenerationRequest `json:"request"`
	Stage      Stage             `json:"stage"`
	Progress   int               `json:"progress"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	ResultPath string            `json:"result_path,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
