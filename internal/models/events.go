package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeStageStarted   = "STAGE_STARTED"
	EventTypeStageProgress  = "STAGE_PROGRESS"
	EventTypeStageCompleted = "STAGE_COMPLETED"
	EventTypeStageFailed    = "STAGE_FAILED"
	EventTypeStageStopped   = "STAGE_STOPPED"
	EventTypeStageRequested = "STAGE_REQUESTED"
)

// Progress levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StageStartedEvent published when a stage slot transitions to Running.
type StageStartedEvent struct {
	BaseEvent
	Stage StageID `json:"stage"`
	RunID string  `json:"run_id"`
}

// StageProgressEvent is one structured progress line from a running stage.
type StageProgressEvent struct {
	BaseEvent
	Stage    StageID  `json:"stage"`
	RunID    string   `json:"run_id"`
	Level    string   `json:"level"`
	Message  string   `json:"message"`
	Progress *float64 `json:"progress,omitempty"`
}

// StageCompletedEvent published when a stage finishes successfully.
type StageCompletedEvent struct {
	BaseEvent
	Stage StageID `json:"stage"`
	RunID string  `json:"run_id"`
}

// StageFailedEvent published when a stage exits with an error.
type StageFailedEvent struct {
	BaseEvent
	Stage  StageID `json:"stage"`
	RunID  string  `json:"run_id"`
	Reason string  `json:"reason"`
}

// StageStoppedEvent published when a running stage is cancelled.
type StageStoppedEvent struct {
	BaseEvent
	Stage StageID `json:"stage"`
	RunID string  `json:"run_id"`
}

// StageRequestedEvent asks the worker to run a stage. Lets automation
// drivers sequence the pipeline over the broker instead of HTTP.
type StageRequestedEvent struct {
	BaseEvent
	Stage StageID `json:"stage"`
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func NewStageStartedEvent(stage StageID, runID string) StageStartedEvent {
	return StageStartedEvent{
		BaseEvent: newBaseEvent(EventTypeStageStarted),
		Stage:     stage,
		RunID:     runID,
	}
}

func NewStageProgressEvent(stage StageID, runID, message string) StageProgressEvent {
	return StageProgressEvent{
		BaseEvent: newBaseEvent(EventTypeStageProgress),
		Stage:     stage,
		RunID:     runID,
		Level:     LevelInfo,
		Message:   message,
	}
}

func NewStageCompletedEvent(stage StageID, runID string) StageCompletedEvent {
	return StageCompletedEvent{
		BaseEvent: newBaseEvent(EventTypeStageCompleted),
		Stage:     stage,
		RunID:     runID,
	}
}

func NewStageFailedEvent(stage StageID, runID, reason string) StageFailedEvent {
	return StageFailedEvent{
		BaseEvent: newBaseEvent(EventTypeStageFailed),
		Stage:     stage,
		RunID:     runID,
		Reason:    reason,
	}
}

func NewStageStoppedEvent(stage StageID, runID string) StageStoppedEvent {
	return StageStoppedEvent{
		BaseEvent: newBaseEvent(EventTypeStageStopped),
		Stage:     stage,
		RunID:     runID,
	}
}

func NewStageRequestedEvent(stage StageID) StageRequestedEvent {
	return StageRequestedEvent{
		BaseEvent: newBaseEvent(EventTypeStageRequested),
		Stage:     stage,
	}
}
