package roverpanel

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youssefsiam38/roverpanel/api"
	"github.com/youssefsiam38/roverpanel/maintenance"
	"github.com/youssefsiam38/roverpanel/notifier"
	"github.com/youssefsiam38/roverpanel/storage"
)

// Table names, as used in error messages.
const (
	TableMovements = "MOVS"
	TableObstacles = "OBS"
	TableRoutes    = "RUTAS"
)

// Row is one rendered table row.
type Row struct {
	Cells []string
}

// Table is one of the monitor tables. A failed fetch leaves Rows empty
// and sets Err and Message.
type Table struct {
	Name    string
	Rows    []Row
	Err     error
	Message string
}

// Snapshot is the result of one refresh of all three tables.
type Snapshot struct {
	DeviceID    int
	Movements   Table
	Obstacles   Table
	Routes      Table
	LastUpdated time.Time
}

// Failed returns the tables whose fetch failed.
func (s Snapshot) Failed() []Table {
	var out []Table
	for _, t := range []Table{s.Movements, s.Obstacles, s.Routes} {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Monitor keeps the live tables of one device up to date.
type Monitor struct {
	client  *api.Client
	device  *DeviceContext
	display *Display
	events  *EventLog
	loc     *time.Location
	logger  Logger

	refresher *maintenance.Refresher

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	snapshot  Snapshot
	pushState notifier.ConnState
	unsub     func()
}

// NewMonitor creates a monitor. No request is made until RefreshAll or
// StartAuto.
func NewMonitor(ctx context.Context, cfg *Config, store storage.Store) (*Monitor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Monitor{
		client:    api.New(cfg.APIBase, api.WithTimeout(cfg.RequestTimeout)),
		display:   NewDisplay(),
		events:    NewEventLog(DefaultEventLogSize),
		loc:       cfg.Location(),
		logger:    cfg.Logger,
		pushState: notifier.StateDisabled,
	}
	if cfg.PushURL != "" {
		m.pushState = notifier.StateConnecting
	}
	m.device = NewDeviceContext(ctx, store, cfg.DeviceID, cfg.Logger)
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.refresher = maintenance.NewRefresher(func(ctx context.Context) {
		m.RefreshAll(ctx)
	}, &maintenance.RefreshConfig{Interval: cfg.RefreshInterval})

	m.unsub = m.device.Subscribe(func(id int) {
		m.display.SetStatus(fmt.Sprintf("Mostrando dispositivo %d", id), ToneDevice)
		m.RefreshAll(m.ctx)
	})

	return m, nil
}

// Device returns the device context.
func (m *Monitor) Device() *DeviceContext { return m.device }

// Display returns the status display.
func (m *Monitor) Display() *Display { return m.display }

// Events returns the diagnostic push event log.
func (m *Monitor) Events() *EventLog { return m.events }

// Location returns the display time zone.
func (m *Monitor) Location() *time.Location { return m.loc }

// RefreshAll fetches the three tables concurrently and waits for all of
// them. A failing table is emptied and reported without affecting the
// others.
func (m *Monitor) RefreshAll(ctx context.Context) Snapshot {
	deviceID := m.device.ID()
	snap := Snapshot{DeviceID: deviceID}

	var g errgroup.Group
	g.Go(func() error {
		snap.Movements = m.loadMovements(ctx, deviceID)
		return nil
	})
	g.Go(func() error {
		snap.Obstacles = m.loadObstacles(ctx, deviceID)
		return nil
	})
	g.Go(func() error {
		snap.Routes = m.loadRoutes(ctx, deviceID)
		return nil
	})
	_ = g.Wait()

	snap.LastUpdated = time.Now()

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	m.display.SetStatus(fmt.Sprintf("Mostrando dispositivo %d", deviceID), ToneDevice)
	return snap
}

// Snapshot returns the result of the last refresh.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// SetDevice switches to the device in raw and refreshes the tables.
func (m *Monitor) SetDevice(ctx context.Context, raw string) error {
	if err := m.device.SetString(ctx, raw); err != nil {
		m.display.SetStatus("ID INVÁLIDO", ToneError)
		return err
	}
	return nil
}

// StartAuto enables periodic refresh. Enabling it again replaces the timer.
func (m *Monitor) StartAuto() error {
	return m.refresher.Start(m.ctx)
}

// StopAuto disables periodic refresh.
func (m *Monitor) StopAuto() {
	_ = m.refresher.Stop()
}

// AutoEnabled returns true while periodic refresh is on.
func (m *Monitor) AutoEnabled() bool {
	return m.refresher.IsRunning()
}

// Refresher returns the periodic refresh service.
func (m *Monitor) Refresher() *maintenance.Refresher {
	return m.refresher
}

// HandleEvent logs every non-pong event and refreshes the tables on data
// change events.
func (m *Monitor) HandleEvent(ctx context.Context, event *notifier.Event) {
	m.events.Add(event)
	if event.Type.IsDataChange() {
		m.logger.Debug("refresh on push event", "event", event.Name)
		m.RefreshAll(ctx)
	}
}

// SetPushState records the push channel state.
func (m *Monitor) SetPushState(state notifier.ConnState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushState = state
}

// PushState returns the push channel state.
func (m *Monitor) PushState() notifier.ConnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pushState
}

// Close stops periodic refresh.
func (m *Monitor) Close() error {
	m.StopAuto()
	m.unsub()
	m.cancel()
	return nil
}

func (m *Monitor) loadMovements(ctx context.Context, deviceID int) Table {
	rows, err := m.client.RecentMovements(ctx, deviceID)
	if err != nil {
		return m.failed(TableMovements, deviceID, err)
	}
	rows = SortDescBy(rows, func(r api.Movement) string { return r.Timestamp })

	t := Table{Name: TableMovements, Rows: make([]Row, 0, len(rows))}
	for i, r := range rows {
		t.Rows = append(t.Rows, Row{Cells: []string{
			strconv.Itoa(i + 1),
			orDash(r.StatusText),
			FormatLocal(r.Timestamp, m.loc),
		}})
	}
	return t
}

func (m *Monitor) loadObstacles(ctx context.Context, deviceID int) Table {
	rows, err := m.client.RecentObstacles(ctx, deviceID)
	if err != nil {
		return m.failed(TableObstacles, deviceID, err)
	}
	rows = SortDescBy(rows, func(r api.Obstacle) string { return r.Timestamp })

	t := Table{Name: TableObstacles, Rows: make([]Row, 0, len(rows))}
	for i, r := range rows {
		t.Rows = append(t.Rows, Row{Cells: []string{
			strconv.Itoa(i + 1),
			orDash(r.StatusText),
			FormatLocal(r.Timestamp, m.loc),
		}})
	}
	return t
}

func (m *Monitor) loadRoutes(ctx context.Context, deviceID int) Table {
	rows, err := m.client.RecentSequences(ctx, deviceID)
	if err != nil {
		return m.failed(TableRoutes, deviceID, err)
	}
	rows = SortDescBy(rows, func(r api.Sequence) string { return r.CreatedAt })

	t := Table{Name: TableRoutes, Rows: make([]Row, 0, len(rows))}
	for _, r := range rows {
		id := "-"
		if r.ID > 0 {
			id = strconv.Itoa(r.ID)
		}
		t.Rows = append(t.Rows, Row{Cells: []string{
			id,
			orDash(r.Name),
			FormatLocal(r.CreatedAt, m.loc),
		}})
	}
	return t
}

func (m *Monitor) failed(name string, deviceID int, err error) Table {
	msg := fmt.Sprintf("ERROR %s: %s", name, reason(err))
	m.logger.Error("failed to load table", "table", name, "device_id", deviceID, "error", err)
	m.display.SetStatus(msg, ToneError)
	return Table{
		Name:    name,
		Err:     NewPanelError("Load"+name, deviceID, err),
		Message: msg,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
