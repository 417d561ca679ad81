package eventstore

import (
	"encoding/json"
	"time"
)

// Event types recorded for a build.
const (
	TypeBuildStarted  = "BuildStarted"
	TypeBuildFinished = "BuildFinished"
	TypeBuildRepaired = "BuildRepaired"
)

// Event is one recorded step of a build.
type Event interface {
	ID() int64
	BuildID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
}

// BaseEvent is the stored form of every event.
type BaseEvent struct {
	EventID        int64
	EventBuildID   string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
}

func (e *BaseEvent) ID() int64            { return e.EventID }
func (e *BaseEvent) BuildID() string      { return e.EventBuildID }
func (e *BaseEvent) Type() string         { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte      { return e.EventPayload }

// Decode unmarshals the payload of e into v.
func Decode(e Event, v any) error {
	return json.Unmarshal(e.Payload(), v)
}
