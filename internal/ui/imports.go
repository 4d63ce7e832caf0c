package ui

import "github.com/bamsammich/checksum/internal/event"

// Event is the engine's progress event.
type Event = event.Event

// Re-export event types for convenience.
const (
	PlanStarted   = event.PlanStarted
	PlanComplete  = event.PlanComplete
	FileStarted   = event.FileStarted
	FileProgress  = event.FileProgress
	FileCompleted = event.FileCompleted
	FileIdentical = event.FileIdentical
	FileFailed    = event.FileFailed
	FileCancelled = event.FileCancelled
)
