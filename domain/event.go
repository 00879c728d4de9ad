package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind classifies a change-data-capture record.
type EventKind string

const (
	EventKindCreate   EventKind = "create"
	EventKindUpdate   EventKind = "update"
	EventKindDelete   EventKind = "delete"
	EventKindSnapshot EventKind = "snapshot"
)

// ChangeEvent is a decoded record from the change feed.
type ChangeEvent struct {
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Tag returns the bracketed marker embedded in rendered feed messages.
func (k EventKind) Tag() string {
	switch k {
	case EventKindCreate:
		return "[Created]"
	case EventKindUpdate:
		return "[Updated]"
	case EventKindDelete:
		return "[Deleted]"
	case EventKindSnapshot:
		return "[Snapshot]"
	default:
		return ""
	}
}

// ClassifyMessage maps a rendered broadcast line to an event kind by tag
// substring, first match wins in the order Created, Updated, Deleted,
// Snapshot. Lines without a tag are plain chat and report false.
func ClassifyMessage(text string) (EventKind, bool) {
	switch {
	case strings.Contains(text, "Created"):
		return EventKindCreate, true
	case strings.Contains(text, "Updated"):
		return EventKindUpdate, true
	case strings.Contains(text, "Deleted"):
		return EventKindDelete, true
	case strings.Contains(text, "Snapshot"):
		return EventKindSnapshot, true
	default:
		return "", false
	}
}
