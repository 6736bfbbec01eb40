package roverpanel

import (
	"fmt"
	"testing"
	"time"

	"github.com/youssefsiam38/roverpanel/notifier"
)

func TestEventLog_CapNewestFirst(t *testing.T) {
	l := NewEventLog(0)

	for i := 0; i < 60; i++ {
		l.Add(&notifier.Event{
			Type:       notifier.EventMovementInserted,
			Name:       string(notifier.EventMovementInserted),
			Payload:    []byte(fmt.Sprintf(`{"n":%d}`, i)),
			ReceivedAt: time.Now(),
		})
	}

	entries := l.Entries()
	if len(entries) != DefaultEventLogSize || l.Len() != 50 {
		t.Fatalf("len = %d, want 50", len(entries))
	}
	if entries[0].Payload != `{"n":59}` || entries[49].Payload != `{"n":10}` {
		t.Errorf("first=%s last=%s", entries[0].Payload, entries[49].Payload)
	}
	if entries[0].ID == entries[1].ID {
		t.Error("entries share an id")
	}
}

func TestEventLog_SkipsPong(t *testing.T) {
	l := NewEventLog(5)

	if l.Add(&notifier.Event{Type: notifier.EventPong, Name: "pong"}) {
		t.Error("Add(pong) = true")
	}
	if l.Add(nil) {
		t.Error("Add(nil) = true")
	}
	if !l.Add(&notifier.Event{Type: notifier.EventUnknown, Name: "bateria.baja"}) {
		t.Error("Add(unknown) = false")
	}

	entries := l.Entries()
	if len(entries) != 1 || entries[0].Name != "bateria.baja" || entries[0].ReceivedAt.IsZero() {
		t.Errorf("entries = %+v", entries)
	}
}
