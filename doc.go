// Package roverpanel drives a remote-controlled rover through its HTTP API.
//
// It provides the two front ends of the rover as a library: a control
// panel (manual movement, obstacle/evasion simulation, sequence recording
// and playback) and a monitor (live tables of recent movements, obstacles
// and routes, refreshed by polling and by push notifications).
//
// # Key Features
//
//   - Device context persisted through a pluggable storage.Store
//   - Command dispatch with an uppercase status line, as the panel shows it
//   - Sequence recording, step-by-step saving and cancellable playback
//   - Concurrent monitor refresh with per-table failure isolation
//   - Push events decoded into a closed set of types
//
// # Quick Start
//
//	cfg := roverpanel.DefaultConfig()
//	cfg.APIBase = "http://127.0.0.1:5500"
//
//	ctrl, err := roverpanel.NewControl(ctx, cfg, storage.NewMemoryStore())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctrl.Close()
//
//	_ = ctrl.SendCommand(ctx, roverpanel.OpForward, roverpanel.DefaultSpeed)
//	fmt.Println(ctrl.Display().Status().Text) // "ADELANTE ✓ (VEL: 180)"
//
// # Sequences
//
//	ctrl.StartRecording()
//	_ = ctrl.SendCommand(ctx, roverpanel.OpForward, 180)
//	_ = ctrl.SendCommand(ctx, roverpanel.OpTurnRight90, 180)
//	ctrl.StopRecording()
//	_ = ctrl.SaveSequence(ctx, "patrulla")
//
//	run, _ := ctrl.RunSequence(ctx, seqID)
//	result := run.Wait(ctx)
//	if result.Outcome == roverpanel.OutcomeFaulted {
//	    log.Println(result.Err)
//	}
//
// # Monitor
//
//	mon, _ := roverpanel.NewMonitor(ctx, cfg, store)
//	snap := mon.RefreshAll(ctx)
//	for _, row := range snap.Movements.Rows {
//	    fmt.Println(row.Cells)
//	}
package roverpanel
