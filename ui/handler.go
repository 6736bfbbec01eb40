package ui

import (
	"net/http"
	"time"

	"github.com/youssefsiam38/roverpanel"
	"github.com/youssefsiam38/roverpanel/ui/frontend"
)

// Handler returns an http.Handler serving the control panel, the monitor
// panel, or both. A nil panel disables its routes.
//
// Usage:
//
//	http.Handle("/panel/", http.StripPrefix("/panel", ui.Handler(ctrl, mon, cfg)))
func Handler(ctrl *roverpanel.Control, mon *roverpanel.Monitor, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}

	// Panic on invalid config as this is a programmer error
	if err := cfg.validate(); err != nil {
		panic("ui: invalid configuration: " + err.Error())
	}
	if ctrl == nil && mon == nil {
		panic(ErrNoPanel.Error())
	}

	loc := locationOf(ctrl, mon)
	return frontend.NewRouter(ctrl, mon, &frontend.Config{
		BasePath:        cfg.BasePath,
		ReadOnly:        cfg.ReadOnly,
		RefreshInterval: cfg.RefreshInterval,
		Location:        loc,
		Logger:          cfg.Logger,
	})
}

func locationOf(ctrl *roverpanel.Control, mon *roverpanel.Monitor) *time.Location {
	if mon != nil {
		return mon.Location()
	}
	return ctrl.Config().Location()
}
