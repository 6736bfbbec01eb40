package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/youssefsiam38/roverpanel"
	"github.com/youssefsiam38/roverpanel/notifier"
	"github.com/youssefsiam38/roverpanel/ui"
)

func runControl(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("control", e)
	addr := fs.String("addr", ":8080", "listen address")
	readOnly := fs.Bool("readonly", false, "reject every command")
	basePath := fs.String("base-path", "", "URL prefix the panel is mounted under")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cf.config(e)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cf.state)
	if err != nil {
		return err
	}
	defer closeStore()

	ctrl, err := roverpanel.NewControl(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	if err := cf.selectDevice(ctx, ctrl.SetDevice); err != nil {
		return err
	}

	rl, closeRelay, err := openRelay(ctx, e)
	if err != nil {
		return err
	}
	defer closeRelay()

	stopPush, err := startPush(ctx, e, cfg.PushURL, ctrl, rl, ctrl.HandleEvent)
	if err != nil {
		return err
	}
	defer stopPush()

	return serve(ctx, e, *addr, *basePath, ui.Handler(ctrl, nil, &ui.Config{
		BasePath: *basePath,
		ReadOnly: *readOnly,
		Logger:   e.logger,
	}))
}

func runMonitor(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("monitor", e)
	addr := fs.String("addr", ":8081", "listen address")
	auto := fs.Bool("auto", true, "refresh the tables periodically")
	basePath := fs.String("base-path", "", "URL prefix the panel is mounted under")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cf.config(e)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cf.state)
	if err != nil {
		return err
	}
	defer closeStore()

	mon, err := roverpanel.NewMonitor(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer mon.Close()
	if err := cf.selectDevice(ctx, mon.SetDevice); err != nil {
		return err
	}

	mon.RefreshAll(ctx)
	if *auto {
		if err := mon.StartAuto(); err != nil {
			return err
		}
	}

	rl, closeRelay, err := openRelay(ctx, e)
	if err != nil {
		return err
	}
	defer closeRelay()

	stopPush, err := startPush(ctx, e, cfg.PushURL, mon, rl, func(event *notifier.Event) {
		mon.HandleEvent(ctx, event)
	})
	if err != nil {
		return err
	}
	defer stopPush()

	return serve(ctx, e, *addr, *basePath, ui.Handler(nil, mon, &ui.Config{
		BasePath:        *basePath,
		RefreshInterval: max(cfg.RefreshInterval, time.Second),
		Logger:          e.logger,
	}))
}

// serve runs handler on addr until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, e *env, addr, basePath string, handler http.Handler) error {
	mux := http.NewServeMux()
	if basePath == "" {
		mux.Handle("/", handler)
	} else {
		mux.Handle(basePath+"/", http.StripPrefix(basePath, handler))
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("serving panel", "addr", addr, "base_path", basePath)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	e.logger.Info("server stopped")
	return nil
}
