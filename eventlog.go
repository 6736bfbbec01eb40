package roverpanel

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youssefsiam38/roverpanel/notifier"
)

// DefaultEventLogSize is how many push events the diagnostic log keeps.
const DefaultEventLogSize = 50

// LogEntry is one push event in the diagnostic log.
type LogEntry struct {
	ID         uuid.UUID
	Type       notifier.EventType
	Name       string
	Payload    string
	ReceivedAt time.Time
}

// EventLog is a capped rolling log of push events, newest first. Pong
// keepalives are never logged.
type EventLog struct {
	mu       sync.RWMutex
	entries  []LogEntry
	capacity int
}

// NewEventLog creates a log holding at most capacity entries.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogSize
	}
	return &EventLog{capacity: capacity}
}

// Add records event and returns false for pong keepalives.
func (l *EventLog) Add(event *notifier.Event) bool {
	if event == nil || event.Type == notifier.EventPong {
		return false
	}

	entry := LogEntry{
		ID:         uuid.New(),
		Type:       event.Type,
		Name:       event.Name,
		Payload:    string(event.Payload),
		ReceivedAt: event.ReceivedAt,
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]LogEntry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return true
}

// Entries returns the logged events, newest first.
func (l *EventLog) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LogEntry(nil), l.entries...)
}

// Len returns the number of logged events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
