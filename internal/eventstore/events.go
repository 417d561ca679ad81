package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
)

// BuildStartedData is the payload of a BuildStarted event.
type BuildStartedData struct {
	Root      string `json:"root"`
	PublicDir string `json:"public_dir"`
	PID       int    `json:"pid"`
	Trigger   string `json:"trigger,omitempty"` // cli, watch, interval
}

// BuildFinishedData is the payload of a BuildFinished event.
type BuildFinishedData struct {
	Outcome    string         `json:"outcome"`
	Projects   int            `json:"projects"`
	Skipped    int            `json:"skipped"`
	Files      int64          `json:"files"`
	Bytes      int64          `json:"bytes"`
	Issues     map[string]int `json:"issues,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Revision   string         `json:"revision,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// BuildRepairedData is the payload of a BuildRepaired event.
type BuildRepairedData struct {
	LockRemoved bool     `json:"lock_removed"`
	Restored    string   `json:"restored,omitempty"`
	Removed     []string `json:"removed,omitempty"`
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, at time.Time, data BuildStartedData) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildStarted, at, data)
}

// NewBuildFinished creates a BuildFinished event.
func NewBuildFinished(buildID string, at time.Time, data BuildFinishedData) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildFinished, at, data)
}

// NewBuildRepaired creates a BuildRepaired event.
func NewBuildRepaired(buildID string, at time.Time, data BuildRepairedData) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildRepaired, at, data)
}

func newEvent(buildID, eventType string, at time.Time, data any) (*BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.HistoryError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("build_id", buildID).
			Build()
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: at,
		EventPayload:   payload,
	}, nil
}
