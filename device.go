package roverpanel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/youssefsiam38/roverpanel/storage"
)

// DeviceContext owns the selected device id. The id is always at least 1.
type DeviceContext struct {
	store  storage.Store
	logger Logger

	// setMu orders the store write and the in-memory assignment of Set.
	setMu sync.Mutex

	mu      sync.RWMutex
	id      int
	subs    map[int]func(id int)
	nextSub int
}

// NewDeviceContext loads the persisted device id. A missing or invalid
// value falls back to defaultID. A store read failure is logged and also
// falls back.
func NewDeviceContext(ctx context.Context, store storage.Store, defaultID int, logger Logger) *DeviceContext {
	if logger == nil {
		logger = discardLogger{}
	}
	if defaultID < 1 {
		defaultID = DefaultDeviceID
	}

	d := &DeviceContext{
		store:  store,
		logger: logger,
		id:     defaultID,
		subs:   make(map[int]func(id int)),
	}

	if store == nil {
		return d
	}

	raw, err := store.Get(ctx, storage.KeyDeviceID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		logger.Warn("failed to load device id", "error", err)
	default:
		if id, err := parseDeviceID(raw); err == nil {
			d.id = id
		} else {
			logger.Warn("ignoring stored device id", "value", raw)
		}
	}

	return d
}

// ID returns the current device id.
func (d *DeviceContext) ID() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id
}

// Set persists id and notifies subscribers. An id below 1 returns
// ErrInvalidDevice. A persistence failure returns an error wrapping
// ErrStorage. In both cases the previous id is kept.
func (d *DeviceContext) Set(ctx context.Context, id int) error {
	if id < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDevice, id)
	}

	d.setMu.Lock()
	if d.store != nil {
		if err := d.store.Set(ctx, storage.KeyDeviceID, strconv.Itoa(id)); err != nil {
			d.setMu.Unlock()
			return NewPanelError("SetDevice", id, fmt.Errorf("%w: %v", ErrStorage, err))
		}
	}

	d.mu.Lock()
	d.id = id
	subs := make([]func(int), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()
	d.setMu.Unlock()

	d.logger.Info("device selected", "device_id", id)
	for _, fn := range subs {
		fn(id)
	}
	return nil
}

// SetString parses raw form or CLI input and calls Set.
func (d *DeviceContext) SetString(ctx context.Context, raw string) error {
	id, err := parseDeviceID(raw)
	if err != nil {
		return err
	}
	return d.Set(ctx, id)
}

// Subscribe registers fn for device changes.
// Returns a function to unsubscribe.
func (d *DeviceContext) Subscribe(fn func(id int)) func() {
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

func parseDeviceID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDevice, raw)
	}
	return id, nil
}
