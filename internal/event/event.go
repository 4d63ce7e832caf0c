package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PlanStarted Type = iota + 1
	PlanComplete
	FileStarted
	FileProgress
	FileCompleted
	FileIdentical
	FileFailed
	FileCancelled
)

var typeNames = [...]string{
	PlanStarted:   "PlanStarted",
	PlanComplete:  "PlanComplete",
	FileStarted:   "FileStarted",
	FileProgress:  "FileProgress",
	FileCompleted: "FileCompleted",
	FileIdentical: "FileIdentical",
	FileFailed:    "FileFailed",
	FileCancelled: "FileCancelled",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Terminal reports whether the event ends a unit's lifecycle.
func (t Type) Terminal() bool {
	switch t {
	case FileCompleted, FileIdentical, FileFailed, FileCancelled:
		return true
	}
	return false
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // source file
	Dest      string // destination file
	Size      int64  // file size, or bytes-so-far for FileProgress
	Total     int64  // total units (PlanComplete)
	TotalSize int64  // total bytes (PlanComplete)
	Digest    string // verified digest (FileCompleted, FileIdentical)
	Error     error
	WorkerID  int
}
