package frontend

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/youssefsiam38/roverpanel"
)

//go:embed templates/*
var templatesFS embed.FS

// Config holds frontend router configuration.
type Config struct {
	// BasePath is the URL prefix where the UI is mounted.
	// All links and form actions are prefixed with this path.
	BasePath string

	// ReadOnly rejects every POST route that acts on the rover or the
	// selected device. Reloading the sequence list stays available.
	ReadOnly bool

	// RefreshInterval for fragment polling.
	RefreshInterval time.Duration

	// Location renders timestamps. Default: UTC.
	Location *time.Location

	// Logger for structured logging.
	Logger Logger
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// router holds the frontend router state.
type router struct {
	ctrl     *roverpanel.Control
	mon      *roverpanel.Monitor
	config   *Config
	renderer *renderer
}

// NewRouter creates a new frontend router. Routes of a nil panel are not
// registered.
func NewRouter(ctrl *roverpanel.Control, mon *roverpanel.Monitor, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{RefreshInterval: 5 * time.Second}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	// Page templates are parsed by the renderer so their "content" blocks
	// do not collide.
	baseTmpl := template.Must(template.New("").
		Funcs(templateFuncs(cfg.Location)).
		ParseFS(templatesFS,
			"templates/base.html",
			"templates/fragments/*.html",
		))

	rt := &router{
		ctrl:     ctrl,
		mon:      mon,
		config:   cfg,
		renderer: newRenderer(baseTmpl, templatesFS, cfg),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", rt.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", rt.handleIndex).Methods(http.MethodGet)

	// Full paths on the root router keep 405 answers for method mismatches.
	if ctrl != nil {
		r.HandleFunc("/control", rt.handleControl).Methods(http.MethodGet)
		r.HandleFunc("/control/fragments/status", rt.handleFragmentStatus).Methods(http.MethodGet)
		r.HandleFunc("/control/fragments/sequences", rt.handleFragmentSequences).Methods(http.MethodGet)
		r.HandleFunc("/control/sequences/reload", rt.handleReloadSequences).Methods(http.MethodPost)

		r.HandleFunc("/control/device", rt.write(rt.handleControlDevice)).Methods(http.MethodPost)
		r.HandleFunc("/control/command", rt.write(rt.handleCommand)).Methods(http.MethodPost)
		r.HandleFunc("/control/obstacle", rt.write(rt.handleObstacle)).Methods(http.MethodPost)
		r.HandleFunc("/control/recording/start", rt.write(rt.handleRecordingStart)).Methods(http.MethodPost)
		r.HandleFunc("/control/recording/stop", rt.write(rt.handleRecordingStop)).Methods(http.MethodPost)
		r.HandleFunc("/control/sequences", rt.write(rt.handleSaveSequence)).Methods(http.MethodPost)
		r.HandleFunc("/control/playback/run", rt.write(rt.handlePlaybackRun)).Methods(http.MethodPost)
		r.HandleFunc("/control/playback/stop", rt.write(rt.handlePlaybackStop)).Methods(http.MethodPost)
	}

	if mon != nil {
		r.HandleFunc("/monitor", rt.handleMonitor).Methods(http.MethodGet)
		r.HandleFunc("/monitor/fragments/tables", rt.handleFragmentTables).Methods(http.MethodGet)
		r.HandleFunc("/monitor/fragments/events", rt.handleFragmentEvents).Methods(http.MethodGet)

		r.HandleFunc("/monitor/device", rt.write(rt.handleMonitorDevice)).Methods(http.MethodPost)
		r.HandleFunc("/monitor/refresh", rt.write(rt.handleRefresh)).Methods(http.MethodPost)
		r.HandleFunc("/monitor/auto", rt.write(rt.handleAuto)).Methods(http.MethodPost)
	}

	return withFrontendMiddleware(r, cfg)
}

// withFrontendMiddleware wraps the handler with frontend-specific middleware.
func withFrontendMiddleware(handler http.Handler, cfg *Config) http.Handler {
	handler = frontendRecoveryMiddleware(handler, cfg.Logger)
	return handler
}

// frontendRecoveryMiddleware recovers from panics.
func frontendRecoveryMiddleware(next http.Handler, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// write guards a mutating handler with the read-only switch.
func (rt *router) write(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt.config.ReadOnly {
			http.Error(w, "panel is read-only", http.StatusForbidden)
			return
		}
		h(w, r)
	}
}

// templateFuncs returns custom template functions.
func templateFuncs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string { return formatTime(t, loc) },
		"toneStyle":  toneStyle,
		"json":       jsonEncode,
		"markdown":   markdown,
		"payload":    payload,
		"add":        add,
		"default":    defaultVal,
		"dict":       dictFunc,
	}
}

// dictFunc creates a map from key-value pairs for use in templates.
// Usage: {{template "foo" (dict "key1" val1 "key2" val2)}}
func dictFunc(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	dict := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		dict[key] = values[i+1]
	}
	return dict
}
