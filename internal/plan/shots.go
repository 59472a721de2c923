package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseShotList decodes a user-supplied custom shot list. JSON and YAML
// payloads are both accepted; format may also come from the payload
// itself. Malformed input is a PlanningError, never silently defaulted.
func ParseShotList(data []byte, format ShotFormat) (*ShotList, error) {
	if len(data) == 0 {
		return nil, &PlanningError{Message: "empty custom shot list"}
	}

	var list ShotList
	if err := json.Unmarshal(data, &list); err != nil {
		if yamlErr := yaml.Unmarshal(data, &list); yamlErr != nil {
			return nil, &PlanningError{Message: "custom shot list is neither valid JSON nor YAML", Cause: yamlErr}
		}
	}

	if format != "" {
		list.Format = format
	}
	if list.Format == "" {
		list.Format = ShotFormatFreeform
	}

	if err := list.Validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

// Validate checks structural requirements per format.
func (l *ShotList) Validate() error {
	switch l.Format {
	case ShotFormatFreeform, ShotFormatTimeRanges, ShotFormatContentCues, ShotFormatSequence:
	default:
		return &PlanningError{Message: fmt.Sprintf("unknown shot list format %q", l.Format)}
	}

	if len(l.Shots) == 0 {
		return &PlanningError{Message: "custom shot list has no shots"}
	}

	for i, shot := range l.Shots {
		if strings.TrimSpace(shot.Description) == "" {
			return &PlanningError{Message: fmt.Sprintf("shot %d has no description", i)}
		}
		switch l.Format {
		case ShotFormatTimeRanges:
			if shot.End <= shot.Start || shot.Start < 0 {
				return &PlanningError{Message: fmt.Sprintf("shot %d has invalid time range [%v, %v]", i, shot.Start, shot.End)}
			}
		case ShotFormatContentCues:
			if strings.TrimSpace(shot.Trigger) == "" {
				return &PlanningError{Message: fmt.Sprintf("shot %d has no trigger phrase", i)}
			}
		}
	}
	return nil
}
