package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleList unmarshals from either a JSON string array or a single string.
// Model-produced records sometimes collapse a one-item list into a string.
type FlexibleList []string

// UnmarshalJSON implements json.Unmarshaler for FlexibleList.
func (f *FlexibleList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*f = nil
		} else {
			*f = FlexibleList{s}
		}
		return nil
	}

	return fmt.Errorf("expected string or string array, got %s", string(data))
}

// Result status values.
const (
	ResultComplete = "complete"
	ResultPartial  = "partial"
	ResultBlocked  = "blocked"
)

// WorkerResult is the structured artifact every worker writes to
// results/<worker>.json.
type WorkerResult struct {
	Worker          string         `json:"worker"`
	Status          string         `json:"status"`
	Summary         string         `json:"summary,omitempty"`
	Findings        FlexibleList   `json:"findings"`
	Recommendations FlexibleList   `json:"recommendations"`
	FollowUps       FlexibleList   `json:"follow_ups,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

// ParseWorkerResult decodes a structured artifact and checks the fields every
// record must carry: a status and the findings and recommendations lists.
// The lists may be empty but must be present.
func ParseWorkerResult(data []byte) (*WorkerResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	for _, key := range []string{"status", "findings", "recommendations"} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("missing %q field", key)
		}
	}

	var r WorkerResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("malformed result record: %w", err)
	}
	if strings.TrimSpace(r.Status) == "" {
		return nil, fmt.Errorf("empty status field")
	}
	return &r, nil
}
