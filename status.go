package roverpanel

import (
	"strings"
	"sync"
	"time"
)

// Tone is the color of a status line.
type Tone string

const (
	ToneNeutral Tone = "#555"
	ToneInfo    Tone = "#6b63ff"
	ToneSuccess Tone = "#2e7d32"
	ToneError   Tone = "#b91c1c"
	ToneWarning Tone = "#b45309"
	ToneDevice  Tone = "#0d9488"
	ToneDone    Tone = "#059669"
	ToneStopped Tone = "#374151"
)

// StatusLine is the single shared status display.
type StatusLine struct {
	Text      string
	Tone      Tone
	UpdatedAt time.Time
}

// Area identifies an inline message next to a panel section.
type Area string

const (
	AreaObstacle Area = "obstacle"
	AreaSave     Area = "save"
	AreaRun      Area = "run"
)

// Notice is an inline message. OK false renders as an error.
type Notice struct {
	Text string
	OK   bool
}

// Display holds the status line and the inline notices of a panel.
type Display struct {
	mu      sync.RWMutex
	line    StatusLine
	notices map[Area]Notice
	subs    map[int]func(StatusLine)
	nextSub int
}

// NewDisplay creates an empty display.
func NewDisplay() *Display {
	return &Display{
		line:    StatusLine{Tone: ToneNeutral},
		notices: make(map[Area]Notice),
		subs:    make(map[int]func(StatusLine)),
	}
}

// SetStatus replaces the status line. Text is shown uppercased.
func (d *Display) SetStatus(text string, tone Tone) {
	if tone == "" {
		tone = ToneNeutral
	}
	line := StatusLine{
		Text:      strings.ToUpper(text),
		Tone:      tone,
		UpdatedAt: time.Now(),
	}

	d.mu.Lock()
	d.line = line
	subs := make([]func(StatusLine), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	for _, fn := range subs {
		fn(line)
	}
}

// Status returns the current status line.
func (d *Display) Status() StatusLine {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.line
}

// Notify sets the notice of an area.
func (d *Display) Notify(area Area, text string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices[area] = Notice{Text: text, OK: ok}
}

// ClearNotice empties the notice of an area.
func (d *Display) ClearNotice(area Area) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notices, area)
}

// Notice returns the notice of an area.
func (d *Display) Notice(area Area) (Notice, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notices[area]
	return n, ok
}

// Subscribe registers fn for status line changes.
// Returns a function to unsubscribe.
func (d *Display) Subscribe(fn func(StatusLine)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}
