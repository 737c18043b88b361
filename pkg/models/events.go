package models

import "time"

// EventKind discriminates the payload of a TaskEvent
type EventKind string

const (
	EventProgress EventKind = "progress" // Progress/Stats fields populated
	EventLog      EventKind = "log"      // Level/Message fields populated
	EventPage     EventKind = "page"     // PageURL/PageStatus fields populated
	EventDone     EventKind = "done"     // FinalStatus/Stats fields populated
)

// TaskEvent is one entry in a task's append-only event log. Index is assigned
// by the log and is strictly increasing per task; push subscribers replay from
// an index and pull clients poll for entries after one, so both transports see
// the same ordering.
type TaskEvent struct {
	Index       int        `json:"index"`
	Kind        EventKind  `json:"kind"`
	Timestamp   time.Time  `json:"timestamp"`
	Progress    float64    `json:"progress,omitempty"` // 0..100
	StatusText  string     `json:"status_text,omitempty"`
	Stats       *Stats     `json:"stats,omitempty"` // Snapshot, never shared
	Level       string     `json:"level,omitempty"`
	Message     string     `json:"message,omitempty"`
	PageURL     string     `json:"page_url,omitempty"`
	PageStatus  URLStatus  `json:"page_status,omitempty"`
	FinalStatus TaskStatus `json:"final_status,omitempty"`
}
