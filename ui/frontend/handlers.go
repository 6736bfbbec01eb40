package frontend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/youssefsiam38/roverpanel"
)

// errBadForm marks a form field that does not parse.
var errBadForm = errors.New("bad form value")

// FlashMessage is a one-shot message shown above a fragment.
type FlashMessage struct {
	Type    string // "success", "error"
	Message string
}

type operationView struct {
	Code  int
	Label string
}

type stepView struct {
	Label string
	Speed int
}

type sequenceView struct {
	ID        int
	Name      string
	CreatedAt string
}

// controlView feeds control.html and its fragments.
type controlView struct {
	BasePath        string
	ReadOnly        bool
	RefreshInterval int
	DeviceID        int
	Status          roverpanel.StatusLine
	Notices         map[string]roverpanel.Notice
	Operations      []operationView
	SpeedLevels     []int
	DefaultSpeed    int
	Recording       bool
	Steps           []stepView
	Sequences       []sequenceView
	Playing         bool
	PushState       string
	Flash           *FlashMessage
	Trigger         string
}

type tableView struct {
	Title   string
	Headers []string
	roverpanel.Table
}

// monitorView feeds monitor.html and its fragments.
type monitorView struct {
	BasePath        string
	ReadOnly        bool
	RefreshInterval int
	DeviceID        int
	Status          roverpanel.StatusLine
	Tables          []tableView
	LastUpdated     time.Time
	Events          []roverpanel.LogEntry
	Auto            bool
	PushState       string
	Flash           *FlashMessage
}

// formInt parses a form field. An empty field yields def.
func formInt(r *http.Request, key string, def int) (int, error) {
	val := strings.TrimSpace(r.FormValue(key))
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, errBadForm
	}
	return i, nil
}

// formBool accepts the values browsers and curl users send for a checkbox.
func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// errorStatus maps a panel error to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadForm), errors.Is(err, roverpanel.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, roverpanel.ErrModeConflict):
		return http.StatusConflict
	case errors.Is(err, roverpanel.ErrRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func flash(err error) *FlashMessage {
	if err == nil {
		return nil
	}
	return &FlashMessage{Type: "error", Message: err.Error()}
}

// logError logs an error if the logger is configured.
func (rt *router) logError(msg string, err error) {
	if rt.config.Logger != nil {
		rt.config.Logger.Warn(msg, "error", err.Error())
	}
}

// afterAction answers a POST. HTMX requests get fragment back with the
// error as a flash; plain form posts are redirected to page on success.
func (rt *router) afterAction(w http.ResponseWriter, r *http.Request, page, fragment string, view func(*FlashMessage) any, err error) {
	if err != nil {
		rt.logError("panel action failed", err)
	}

	if isHTMX(r) {
		if rerr := rt.renderer.renderFragment(w, fragment, view(flash(err))); rerr != nil {
			http.Error(w, rerr.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	http.Redirect(w, r, rt.config.BasePath+page, http.StatusSeeOther)
}

func (rt *router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (rt *router) handleIndex(w http.ResponseWriter, r *http.Request) {
	target := "/monitor"
	if rt.ctrl != nil {
		target = "/control"
	}
	http.Redirect(w, r, rt.config.BasePath+target, http.StatusTemporaryRedirect)
}

// Control panel

func (rt *router) controlView(f *FlashMessage) any {
	c := rt.ctrl
	display := c.Display()

	notices := make(map[string]roverpanel.Notice)
	for _, area := range []roverpanel.Area{roverpanel.AreaObstacle, roverpanel.AreaSave, roverpanel.AreaRun} {
		if n, ok := display.Notice(area); ok {
			notices[string(area)] = n
		}
	}

	ops := make([]operationView, 0, len(roverpanel.Operations()))
	for _, op := range roverpanel.Operations() {
		ops = append(ops, operationView{Code: int(op), Label: op.Label()})
	}

	var steps []stepView
	for _, s := range c.Recorder().Steps() {
		steps = append(steps, stepView{Label: s.Op.Label(), Speed: s.Speed})
	}

	var seqs []sequenceView
	for _, s := range c.Recorder().Sequences() {
		seqs = append(seqs, sequenceView{
			ID:        s.ID,
			Name:      s.DisplayName(),
			CreatedAt: roverpanel.FormatLocal(s.CreatedAt, rt.config.Location),
		})
	}

	return controlView{
		BasePath:        rt.config.BasePath,
		ReadOnly:        rt.config.ReadOnly,
		RefreshInterval: int(rt.config.RefreshInterval.Seconds()),
		DeviceID:        c.Device().ID(),
		Status:          display.Status(),
		Notices:         notices,
		Operations:      ops,
		SpeedLevels:     roverpanel.SpeedLevels,
		DefaultSpeed:    roverpanel.DefaultSpeed,
		Recording:       c.Recorder().IsRecording(),
		Steps:           steps,
		Sequences:       seqs,
		Playing:         c.Player().IsPlaying(),
		PushState:       string(c.PushState()),
		Flash:           f,
		Trigger:         sequencesChanged,
	}
}

func (rt *router) handleControl(w http.ResponseWriter, r *http.Request) {
	if err := rt.renderer.render(w, r, "control.html", "Control", rt.controlView(nil)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (rt *router) handleFragmentStatus(w http.ResponseWriter, r *http.Request) {
	if err := rt.renderer.renderFragment(w, "fragments/status.html", rt.controlView(nil)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (rt *router) handleFragmentSequences(w http.ResponseWriter, r *http.Request) {
	if err := rt.renderer.renderFragment(w, "fragments/sequences.html", rt.controlView(nil)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sequencesChanged is sent as HX-Trigger so #sequences reloads after a
// device switch.
const sequencesChanged = "sequences-changed"

func (rt *router) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	err := rt.ctrl.SetDevice(r.Context(), r.FormValue("device_id"))
	if err == nil && isHTMX(r) {
		w.Header().Set("HX-Trigger", sequencesChanged)
	}
	rt.afterAction(w, r, "/control", "fragments/status.html", rt.controlView, err)
}

func (rt *router) handleCommand(w http.ResponseWriter, r *http.Request) {
	op, err := formInt(r, "op", 0)
	if err == nil {
		var speed int
		speed, err = formInt(r, "speed", roverpanel.DefaultSpeed)
		if err == nil {
			err = rt.ctrl.SendCommand(r.Context(), roverpanel.Operation(op), speed)
		}
	}
	rt.afterAction(w, r, "/control", "fragments/status.html", rt.controlView, err)
}

func (rt *router) handleObstacle(w http.ResponseWriter, r *http.Request) {
	key, err := formInt(r, "obstacle_key", 0)
	if err == nil {
		err = rt.ctrl.SimulateObstacle(r.Context(), key)
	}
	rt.afterAction(w, r, "/control", "fragments/status.html", rt.controlView, err)
}

func (rt *router) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	err := rt.ctrl.StartRecording()
	rt.afterAction(w, r, "/control", "fragments/status.html", rt.controlView, err)
}

func (rt *router) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	rt.ctrl.StopRecording()
	rt.afterAction(w, r, "/control", "fragments/status.html", rt.controlView, nil)
}

func (rt *router) handleSaveSequence(w http.ResponseWriter, r *http.Request) {
	err := rt.ctrl.SaveSequence(r.Context(), r.FormValue("name"))
	rt.afterAction(w, r, "/control", "fragments/sequences.html", rt.controlView, err)
}

func (rt *router) handleReloadSequences(w http.ResponseWriter, r *http.Request) {
	_, err := rt.ctrl.LoadSequences(r.Context())
	rt.afterAction(w, r, "/control", "fragments/sequences.html", rt.controlView, err)
}

func (rt *router) handlePlaybackRun(w http.ResponseWriter, r *http.Request) {
	id, err := formInt(r, "sequence_id", 0)
	if err == nil {
		_, err = rt.ctrl.RunSequence(r.Context(), id)
	}
	rt.afterAction(w, r, "/control", "fragments/sequences.html", rt.controlView, err)
}

func (rt *router) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	rt.ctrl.StopSequence()
	rt.afterAction(w, r, "/control", "fragments/sequences.html", rt.controlView, nil)
}

// Monitor panel

func (rt *router) monitorView(f *FlashMessage) any {
	m := rt.mon
	snap := m.Snapshot()

	return monitorView{
		BasePath:        rt.config.BasePath,
		ReadOnly:        rt.config.ReadOnly,
		RefreshInterval: int(rt.config.RefreshInterval.Seconds()),
		DeviceID:        m.Device().ID(),
		Status:          m.Display().Status(),
		Tables: []tableView{
			{Title: "Movimientos", Headers: []string{"#", "Movimiento", "Fecha"}, Table: snap.Movements},
			{Title: "Obstáculos", Headers: []string{"#", "Obstáculo", "Fecha"}, Table: snap.Obstacles},
			{Title: "Rutas", Headers: []string{"ID", "Secuencia", "Fecha"}, Table: snap.Routes},
		},
		LastUpdated: snap.LastUpdated,
		Events:      m.Events().Entries(),
		Auto:        m.AutoEnabled(),
		PushState:   string(m.PushState()),
		Flash:       f,
	}
}

func (rt *router) handleMonitor(w http.ResponseWriter, r *http.Request) {
	if err := rt.renderer.render(w, r, "monitor.html", "Monitor", rt.monitorView(nil)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (rt *router) handleFragmentTables(w http.ResponseWriter, r *http.Request) {
	if err := rt.renderer.renderFragment(w, "fragments/tables.html", rt.monitorView(nil)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (rt *router) handleFragmentEvents(w http.ResponseWriter, r *http.Request) {
	if err := rt.renderer.renderFragment(w, "fragments/events.html", rt.monitorView(nil)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (rt *router) handleMonitorDevice(w http.ResponseWriter, r *http.Request) {
	err := rt.mon.SetDevice(r.Context(), r.FormValue("device_id"))
	rt.afterAction(w, r, "/monitor", "fragments/tables.html", rt.monitorView, err)
}

func (rt *router) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rt.mon.RefreshAll(r.Context())
	rt.afterAction(w, r, "/monitor", "fragments/tables.html", rt.monitorView, nil)
}

func (rt *router) handleAuto(w http.ResponseWriter, r *http.Request) {
	var err error
	if formBool(r, "enabled") {
		err = rt.mon.StartAuto()
	} else {
		rt.mon.StopAuto()
	}
	rt.afterAction(w, r, "/monitor", "fragments/tables.html", rt.monitorView, err)
}
