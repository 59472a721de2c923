package plan

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/forge-media/forge/internal/transcribe"
	"github.com/forge-media/forge/pkg/log"
)

// defaultShotDuration is used for custom shots that carry no time range.
const defaultShotDuration = 10

// totalDurationTolerance is the soft target for the planned sum, in
// seconds. Deviation is logged, not rejected.
const totalDurationTolerance = 5.0

type chatClient interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// Planner turns a transcript and directives into an ordered scene plan.
type Planner struct {
	llm chatClient
}

func NewPlanner(client chatClient) *Planner {
	return &Planner{llm: client}
}

// Plan asks the text-generation provider for a scene plan and validates
// it into descriptors. Every user-specified custom shot is guaranteed to
// appear in the result.
func (p *Planner) Plan(ctx context.Context, transcript *transcribe.Transcript, req Request) ([]SceneDescriptor, error) {
	if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
		return nil, &PlanningError{Message: "empty transcript"}
	}
	if req.Shots != nil {
		if err := req.Shots.Validate(); err != nil {
			return nil, err
		}
	}

	target := TargetClipCount(req.TotalDuration, req.Density)
	prompt := buildPrompt(transcript, req, target)

	content, err := p.llm.SimpleChat(ctx, prompt, "You are a film director planning AI-generated video scenes.")
	if err != nil {
		return nil, &PlanningError{Message: "planning call failed", Cause: err}
	}

	scenes, err := decodeScenes(content)
	if err != nil {
		return nil, err
	}

	if req.Shots != nil {
		scenes = reconcileShots(scenes, req.Shots, transcript)
	}

	var sum int
	for _, s := range scenes {
		sum += s.Duration
	}
	if math.Abs(float64(sum)-req.TotalDuration) > totalDurationTolerance {
		log.Warn("Planned durations sum to %ds against a %.1fs target", sum, req.TotalDuration)
	}

	return scenes, nil
}

// SingleScene synthesizes the one-scene plan used when a prompt override
// bypasses transcription and planning. The scene spans the whole audio
// track, quantized to the duration catalog.
func SingleScene(prompt string, totalDuration float64) []SceneDescriptor {
	return []SceneDescriptor{{
		Prompt:   strings.TrimSpace(prompt),
		Duration: Quantize(totalDuration),
	}}
}

func buildPrompt(transcript *transcribe.Transcript, req Request, targetCount int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this audio transcript and create %d video scene prompts for a visual accompaniment.\n\n", targetCount)

	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(transcript.Text)
	b.WriteString("\n")

	if len(transcript.Segments) > 0 {
		b.WriteString("\nTIMELINE:\n")
		for _, seg := range transcript.Segments {
			fmt.Fprintf(&b, "[%.1fs - %.1fs] %s\n", seg.Start, seg.End, strings.TrimSpace(seg.Text))
		}
	}

	if lang := narrationLanguage(transcript.Text); lang != "" {
		fmt.Fprintf(&b, "\nThe narration language is %s.\n", lang)
	}

	b.WriteString("\nREQUIREMENTS:\n")
	fmt.Fprintf(&b, "1. Create exactly %d scenes that flow with the content\n", targetCount)
	fmt.Fprintf(&b, "2. Each scene duration must be one of: %v seconds\n", DurationCatalog)
	fmt.Fprintf(&b, "3. Total duration must be approximately %d seconds (within %d seconds is OK)\n", int(req.TotalDuration), int(totalDurationTolerance))
	fmt.Fprintf(&b, "4. Visual style: %s\n", req.Style)
	b.WriteString("5. Prompts should be detailed, cinematic descriptions for AI video generation\n")
	b.WriteString("6. Include camera movements, lighting, mood, and specific visual details\n")
	b.WriteString("7. Match scenes to the content being discussed at that point in the audio\n")
	fmt.Fprintf(&b, "8. Visual consistency: %s\n", consistencyGuidance(req.Consistency))
	if req.CameraMotion != "" {
		fmt.Fprintf(&b, "9. Camera motion preference: %s\n", req.CameraMotion)
	}

	if req.Shots != nil && len(req.Shots.Shots) > 0 {
		b.WriteString("\nMANDATORY SHOTS: every one of these user-specified shots MUST appear in the plan, with its description preserved:\n")
		for i, shot := range req.Shots.Shots {
			switch req.Shots.Format {
			case ShotFormatTimeRanges:
				fmt.Fprintf(&b, "- (at %.0fs-%.0fs) %s\n", shot.Start, shot.End, shot.Description)
			case ShotFormatContentCues:
				fmt.Fprintf(&b, "- (when the narration mentions %q) %s\n", shot.Trigger, shot.Description)
			case ShotFormatSequence:
				fmt.Fprintf(&b, "- (shot %d, keep this order) %s\n", i+1, shot.Description)
			default:
				fmt.Fprintf(&b, "- %s\n", shot.Description)
			}
		}
		b.WriteString("Generate connective scenes to cover the rest of the timeline without overlapping these shots.\n")
	}

	b.WriteString("\nOUTPUT FORMAT (JSON array only, no other text):\n")
	b.WriteString(`[` + "\n")
	b.WriteString(`    {"prompt": "Detailed scene description...", "duration": 12, "label": "0:00"},` + "\n")
	b.WriteString(`    {"prompt": "Next scene description...", "duration": 10, "label": "0:12"}` + "\n")
	b.WriteString(`]`)

	return b.String()
}

// narrationLanguage detects the transcript language and returns its
// English display name, or "" when detection is inconclusive.
func narrationLanguage(text string) string {
	lang := whatlanggo.DetectLang(text)
	iso := lang.Iso6391()
	if iso == "" {
		return ""
	}
	tag := language.All.Make(iso)
	if tag == language.Und {
		return ""
	}
	return display.English.Languages().Name(tag)
}

// reconcileShots guarantees every custom shot appears in the plan. Shots
// the model dropped are inserted at their derived position: time-ranged
// and content-triggered shots by timeline, the rest spread evenly.
func reconcileShots(scenes []SceneDescriptor, shots *ShotList, transcript *transcribe.Transcript) []SceneDescriptor {
	for i, shot := range shots.Shots {
		if planContains(scenes, shot.Description) {
			continue
		}
		log.Warn("Planner dropped custom shot %q, re-inserting", shot.Description)

		descriptor := SceneDescriptor{
			Prompt:   shot.Description,
			Duration: defaultShotDuration,
		}

		idx := evenIndex(i, len(shots.Shots), len(scenes))
		switch shots.Format {
		case ShotFormatTimeRanges:
			descriptor.Duration = Quantize(shot.End - shot.Start)
			descriptor.Label = fmt.Sprintf("%.0fs", shot.Start)
			idx = indexForTime(scenes, shot.Start)
		case ShotFormatContentCues:
			if at, ok := triggerTime(transcript, shot.Trigger); ok {
				descriptor.Label = fmt.Sprintf("%.0fs", at)
				idx = indexForTime(scenes, at)
			}
		}

		scenes = insertScene(scenes, idx, descriptor)
	}
	return scenes
}

func planContains(scenes []SceneDescriptor, description string) bool {
	needle := strings.ToLower(strings.TrimSpace(description))
	for _, s := range scenes {
		if strings.Contains(strings.ToLower(s.Prompt), needle) {
			return true
		}
	}
	return false
}

// indexForTime finds the scene index whose cumulative start time covers
// the given timestamp.
func indexForTime(scenes []SceneDescriptor, at float64) int {
	var elapsed float64
	for i, s := range scenes {
		if at < elapsed+float64(s.Duration) {
			return i
		}
		elapsed += float64(s.Duration)
	}
	return len(scenes)
}

func triggerTime(transcript *transcribe.Transcript, trigger string) (float64, bool) {
	needle := strings.ToLower(strings.TrimSpace(trigger))
	for _, seg := range transcript.Segments {
		if strings.Contains(strings.ToLower(seg.Text), needle) {
			return seg.Start, true
		}
	}
	return 0, false
}

func evenIndex(shotIdx, shotCount, sceneCount int) int {
	if shotCount == 0 {
		return sceneCount
	}
	idx := (shotIdx + 1) * sceneCount / (shotCount + 1)
	if idx > sceneCount {
		idx = sceneCount
	}
	return idx
}

func insertScene(scenes []SceneDescriptor, idx int, s SceneDescriptor) []SceneDescriptor {
	if idx < 0 {
		idx = 0
	}
	if idx > len(scenes) {
		idx = len(scenes)
	}
	scenes = append(scenes, SceneDescriptor{})
	copy(scenes[idx+1:], scenes[idx:])
	scenes[idx] = s
	return scenes
}
