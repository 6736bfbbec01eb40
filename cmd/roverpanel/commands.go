package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/youssefsiam38/roverpanel"
	"github.com/youssefsiam38/roverpanel/notifier"
)

// openControl builds a control for a one-shot command.
func openControl(ctx context.Context, e *env, cf *commonFlags) (*roverpanel.Control, func(), error) {
	cfg, err := cf.config(e)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := openStore(ctx, cf.state)
	if err != nil {
		return nil, nil, err
	}

	ctrl, err := roverpanel.NewControl(ctx, cfg, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	closeAll := func() {
		_ = ctrl.Close()
		closeStore()
	}
	if err := cf.selectDevice(ctx, ctrl.SetDevice); err != nil {
		closeAll()
		return nil, nil, err
	}
	return ctrl, closeAll, nil
}

func printStatus(e *env, d *roverpanel.Display) {
	fmt.Fprintln(e.stdout, d.Status().Text)
}

func printNotice(e *env, d *roverpanel.Display, area roverpanel.Area) {
	if n, ok := d.Notice(area); ok {
		fmt.Fprintln(e.stdout, n.Text)
	}
}

func runSend(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("send", e)
	op := fs.Int("op", 0, "operation code (1-11)")
	speed := fs.Int("speed", 0, "PWM speed 0-255 (default $ROVER_SPEED or 180)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl, closeAll, err := openControl(ctx, e, cf)
	if err != nil {
		return err
	}
	defer closeAll()

	if !flagPassed(fs, "speed") {
		*speed = ctrl.Config().Speed
	}
	err = ctrl.SendCommand(ctx, roverpanel.Operation(*op), *speed)
	printStatus(e, ctrl.Display())
	return err
}

func runObstacle(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("obstacle", e)
	key := fs.Int("key", 0, "obstacle key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl, closeAll, err := openControl(ctx, e, cf)
	if err != nil {
		return err
	}
	defer closeAll()

	err = ctrl.SimulateObstacle(ctx, *key)
	printNotice(e, ctrl.Display(), roverpanel.AreaObstacle)
	printStatus(e, ctrl.Display())
	return err
}

func runRecord(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("record", e)
	rawOps := fs.String("ops", "", "comma separated operation codes, e.g. 1,1,8")
	name := fs.String("name", "", "sequence name")
	speed := fs.Int("speed", 0, "PWM speed 0-255 (default $ROVER_SPEED or 180)")
	dryRun := fs.Bool("dry-run", false, "record without sending the movements")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ops, err := roverpanel.ParseOperations(*rawOps)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return fmt.Errorf("%w: -ops is empty", roverpanel.ErrValidation)
	}

	ctrl, closeAll, err := openControl(ctx, e, cf)
	if err != nil {
		return err
	}
	defer closeAll()

	if !flagPassed(fs, "speed") {
		*speed = ctrl.Config().Speed
	}
	if err := ctrl.StartRecording(); err != nil {
		return err
	}
	for _, op := range ops {
		if *dryRun {
			ctrl.Recorder().RecordStep(op, *speed)
			continue
		}
		if err := ctrl.SendCommand(ctx, op, *speed); err != nil {
			printStatus(e, ctrl.Display())
			return err
		}
	}
	ctrl.StopRecording()

	err = ctrl.SaveSequence(ctx, *name)
	printNotice(e, ctrl.Display(), roverpanel.AreaSave)
	return err
}

func runSequences(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("sequences", e)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl, closeAll, err := openControl(ctx, e, cf)
	if err != nil {
		return err
	}
	defer closeAll()

	seqs, err := ctrl.LoadSequences(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(seqs)
	}

	loc := ctrl.Config().Location()
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tCREADA")
	for _, s := range seqs {
		created := roverpanel.FormatLocal(s.CreatedAt, loc)
		if created == "" {
			created = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.DisplayName(), created)
	}
	return tw.Flush()
}

func runPlay(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("play", e)
	id := fs.Int("id", 0, "sequence id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctrl, closeAll, err := openControl(ctx, e, cf)
	if err != nil {
		return err
	}
	defer closeAll()

	unsub := ctrl.Display().Subscribe(func(line roverpanel.StatusLine) {
		fmt.Fprintln(e.stdout, line.Text)
	})
	defer unsub()

	pb, err := ctrl.RunSequence(ctx, *id)
	if err != nil {
		printNotice(e, ctrl.Display(), roverpanel.AreaRun)
		return err
	}

	result, err := pb.Wait(ctx)
	if errors.Is(err, context.Canceled) {
		ctrl.StopSequence()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		result, err = pb.Wait(stopCtx)
	}
	if err != nil {
		return err
	}

	e.logger.Info("playback ended",
		"run_id", result.RunID.String(),
		"outcome", string(result.Outcome),
		"steps", result.Steps,
		"polls", result.Polls,
		"duration", result.FinishedAt.Sub(result.StartedAt).String(),
	)
	return result.Err
}

func runWatch(ctx context.Context, e *env, args []string) error {
	fs, cf := newFlagSet("watch", e)
	fromRedis := fs.Bool("redis", false, "read events relayed on Redis instead of the push channel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	printEvent := func(event *notifier.Event) {
		if event.Type == notifier.EventPong {
			return
		}
		fmt.Fprintf(e.stdout, "%s %s %s\n", event.ReceivedAt.Format(time.RFC3339), event.Name, event.Payload)
	}

	if *fromRedis {
		rl, closeRelay, err := openRelay(ctx, e)
		if err != nil {
			return err
		}
		defer closeRelay()
		if rl == nil {
			return fmt.Errorf("%w: %s is not set", roverpanel.ErrInvalidConfig, envRedisAddr)
		}
		err = rl.Listen(ctx, printEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	cfg, err := cf.config(e)
	if err != nil {
		return err
	}
	if cfg.PushURL == "" {
		return fmt.Errorf("%w: no push URL (-push or %s)", roverpanel.ErrInvalidConfig, roverpanel.EnvPushURL)
	}

	states := make(chan notifier.ConnState, 8)
	n := notifier.NewNotifier(&notifier.Config{
		URL:    cfg.PushURL,
		Logger: e.logger,
		OnStateChange: func(state notifier.ConnState) {
			select {
			case states <- state:
			default:
			}
		},
	})
	n.SubscribeAll(printEvent)
	if err := n.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = n.Stop(stopCtx)
	}()

	// The channel never reconnects, so a drop ends the command.
	for {
		select {
		case <-ctx.Done():
			return nil
		case state := <-states:
			e.logger.Info("push channel", "state", string(state))
			switch state {
			case notifier.StateClosed, notifier.StateError, notifier.StateUnavailable:
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %s", roverpanel.ErrChannel, state)
			}
		}
	}
}
