package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawScene struct {
	Prompt   string  `json:"prompt"`
	Duration float64 `json:"duration"`
	Label    string  `json:"label"`
}

// decodeScenes turns the planning response into validated descriptors.
// Strict decode first, then a defensive extraction of the first
// well-formed array substring; both paths validate the required shape
// and reject rather than guess.
func decodeScenes(content string) ([]SceneDescriptor, error) {
	cleaned := stripCodeFences(content)

	var raw []rawScene
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		candidate := extractArray(cleaned)
		if candidate == "" {
			return nil, &PlanningError{Message: "response contains no scene array", Cause: err}
		}
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			return nil, &PlanningError{Message: "scene array is not valid JSON", Cause: err}
		}
	}

	if len(raw) == 0 {
		return nil, &PlanningError{Message: "planner returned an empty scene list"}
	}

	scenes := make([]SceneDescriptor, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Prompt) == "" {
			return nil, &PlanningError{Message: fmt.Sprintf("scene %d is missing its prompt", i)}
		}
		if r.Duration <= 0 {
			return nil, &PlanningError{Message: fmt.Sprintf("scene %d is missing its duration", i)}
		}
		scenes = append(scenes, SceneDescriptor{
			Prompt:   strings.TrimSpace(r.Prompt),
			Duration: Quantize(r.Duration),
			Label:    strings.TrimSpace(r.Label),
		})
	}
	return scenes, nil
}

// stripCodeFences drops markdown fences the model sometimes wraps the
// payload in.
func stripCodeFences(content string) string {
	if strings.Contains(content, "```json") {
		parts := strings.SplitN(content, "```json", 2)
		content = strings.SplitN(parts[1], "```", 2)[0]
	} else if strings.Contains(content, "```") {
		parts := strings.SplitN(content, "```", 3)
		if len(parts) >= 2 {
			content = parts[1]
		}
	}
	return strings.TrimSpace(content)
}

// extractArray returns the outermost [...] substring, or "" when none.
func extractArray(content string) string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
