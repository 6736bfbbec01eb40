// Package ui provides the embedded web panels of roverpanel.
//
// The package provides an HTTP handler for the SSR frontend:
//   - Handler: control and monitor panels with HTMX + Tailwind
//
// # Quick Start
//
//	cfg, _ := roverpanel.ConfigFromEnv(os.Getenv)
//	store := storage.NewMemoryStore()
//
//	ctrl, _ := roverpanel.NewControl(ctx, cfg, store)
//	mon, _ := roverpanel.NewMonitor(ctx, cfg, store)
//
//	mux := http.NewServeMux()
//	mux.Handle("/panel/", http.StripPrefix("/panel", ui.Handler(ctrl, mon, &ui.Config{BasePath: "/panel"})))
//
//	http.ListenAndServe(":8080", mux)
//
// Either panel may be nil; its routes are then not registered.
//
// # Configuration
//
//	cfg := &ui.Config{
//	    ReadOnly:        true,            // Reject every command
//	    RefreshInterval: 5 * time.Second, // Fragment polling interval
//	}
package ui
