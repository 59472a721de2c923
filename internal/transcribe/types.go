package transcribe

import "fmt"

// Transcript is the speech-to-text result. Segments are optional; an
// empty slice means the provider returned plain text only.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Segment is a time-aligned span of the transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionError reports a failed transcription, including an upload
// still over the provider ceiling after compression.
type TranscriptionError struct {
	Path    string
	Message string
	Cause   error
}

func (e *TranscriptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transcribe %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("transcribe %s: %s", e.Path, e.Message)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}
