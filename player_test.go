package roverpanel

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/youssefsiam38/roverpanel/api"
	"github.com/youssefsiam38/roverpanel/internal/testutil"
	"github.com/youssefsiam38/roverpanel/runstate"
)

const repeatPath = "/api/rutas/repetir"

func waitResult(t *testing.T, pb *Playback) PlaybackResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := pb.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return result
}

func TestPlayer_FinishesOnEmptyStep(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Replies(
		testutil.Response{Status: http.StatusOK, Body: `{"data":[{"orden_ejecutado":1,"status_clave":1}]}`},
		testutil.Response{Status: http.StatusOK, Body: `{"data":[{"orden_ejecutado":2,"status_clave":8,"descripcion":"Giro final"}]}`},
		testutil.Response{Status: http.StatusOK, Body: `{"data":[]}`},
	))
	c := newTestControl(t, fake)

	pb, err := c.RunSequence(context.Background(), 9)
	if err != nil {
		t.Fatalf("RunSequence() error = %v", err)
	}
	result := waitResult(t, pb)

	if result.Outcome != OutcomeFinished || result.Err != nil {
		t.Errorf("result = %+v, want finished", result)
	}
	if result.Polls != 3 || result.Steps != 2 || result.LastOrder != 2 {
		t.Errorf("polls=%d steps=%d last=%d, want 3/2/2", result.Polls, result.Steps, result.LastOrder)
	}

	calls := fake.Calls(repeatPath)
	if len(calls) != 3 {
		t.Fatalf("poll calls = %d, want 3", len(calls))
	}
	for i, want := range []int{0, 1, 2} {
		if calls[i].Int("orden_actual") != want || calls[i].Int("secuencia_id") != 9 {
			t.Errorf("poll %d body = %v", i, calls[i].Body)
		}
	}

	if pb.State() != runstate.PlaybackFinished {
		t.Errorf("State() = %q", pb.State())
	}
	if got := c.Display().Status().Text; got != "GIRO FINAL" {
		t.Errorf("status = %q", got)
	}
	if n, _ := c.Display().Notice(AreaRun); n.Text != "Secuencia finalizada ✓" || !n.OK {
		t.Errorf("notice = %+v", n)
	}
	if c.Player().IsPlaying() {
		t.Error("player still playing")
	}
}

func TestPlayer_CursorIncrementsWithoutExecutedOrder(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Replies(
		testutil.Response{Status: http.StatusOK, Body: `[{"status_clave":1}]`},
		testutil.Response{Status: http.StatusOK, Body: `[{"status_clave":99}]`},
		testutil.Response{Status: http.StatusOK, Body: `{"message":"fin"}`},
	))
	c := newTestControl(t, fake)

	pb, _ := c.RunSequence(context.Background(), 1)
	result := waitResult(t, pb)

	calls := fake.Calls(repeatPath)
	if len(calls) != 3 || calls[1].Int("orden_actual") != 1 || calls[2].Int("orden_actual") != 2 {
		t.Errorf("calls = %+v", calls)
	}
	if result.Outcome != OutcomeFinished {
		t.Errorf("Outcome = %q", result.Outcome)
	}
	if got := c.Display().Status().Text; got != "PASO" {
		t.Errorf("status = %q, want PASO", got)
	}
}

func TestPlayer_FaultedKeepsError(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Replies(
		testutil.Response{Status: http.StatusOK, Body: `{"data":[{"orden_ejecutado":1,"status_clave":1}]}`},
		testutil.Response{Status: http.StatusBadGateway, Body: ``},
	))
	c := newTestControl(t, fake)

	pb, _ := c.RunSequence(context.Background(), 2)
	result := waitResult(t, pb)

	if result.Outcome != OutcomeFaulted {
		t.Fatalf("Outcome = %q, want faulted", result.Outcome)
	}
	if !errors.Is(result.Err, ErrRequest) {
		t.Errorf("Err = %v, want ErrRequest", result.Err)
	}
	// Same user facing message as a normal finish.
	if n, _ := c.Display().Notice(AreaRun); n.Text != "Secuencia finalizada ✓" {
		t.Errorf("notice = %+v", n)
	}
}

func TestPlayer_Stop(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Reply(http.StatusOK, `{"data":[{"status_clave":1}]}`))
	c := newTestControl(t, fake, func(cfg *Config) { cfg.PlaybackDelay = 20 * time.Millisecond })

	pb, _ := c.RunSequence(context.Background(), 5)
	time.Sleep(50 * time.Millisecond)

	if !c.StopSequence() {
		t.Error("StopSequence() = false, want true")
	}
	result := waitResult(t, pb)
	if result.Outcome != OutcomeStopped {
		t.Errorf("Outcome = %q, want stopped", result.Outcome)
	}

	polls := len(fake.Calls(repeatPath))
	time.Sleep(60 * time.Millisecond)
	if got := len(fake.Calls(repeatPath)); got != polls {
		t.Errorf("polls after stop: %d -> %d", polls, got)
	}

	if got := c.Display().Status(); got.Text != "DETENER" || got.Tone != ToneStopped {
		t.Errorf("status = %+v", got)
	}
	if n, _ := c.Display().Notice(AreaRun); n.Text != "Automático detenido" {
		t.Errorf("notice = %+v", n)
	}

	// Idempotent.
	if c.StopSequence() {
		t.Error("second StopSequence() = true")
	}
}

func TestPlayer_StopAbortsInFlightPoll(t *testing.T) {
	release := make(chan struct{})
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, func(n int, call testutil.Call) testutil.Response {
		<-release
		return testutil.Response{Status: http.StatusOK, Body: `{"data":[{"descripcion":"tarde"}]}`}
	})
	defer close(release)
	c := newTestControl(t, fake)

	pb, _ := c.RunSequence(context.Background(), 5)
	time.Sleep(30 * time.Millisecond)
	c.StopSequence()

	result := waitResult(t, pb)
	if result.Outcome != OutcomeStopped {
		t.Errorf("Outcome = %q, want stopped", result.Outcome)
	}
	if got := c.Display().Status().Text; got != "DETENER" {
		t.Errorf("status = %q, stale write landed after stop", got)
	}
}

func TestPlayer_RunReplacesPreviousRun(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Reply(http.StatusOK, `{"data":[{"status_clave":1}]}`))
	c := newTestControl(t, fake, func(cfg *Config) { cfg.PlaybackDelay = 10 * time.Millisecond })
	ctx := context.Background()

	first, _ := c.RunSequence(ctx, 1)
	second, _ := c.RunSequence(ctx, 2)

	if result := waitResult(t, first); result.Outcome != OutcomeStopped {
		t.Errorf("first Outcome = %q, want stopped", result.Outcome)
	}
	if c.Player().Last() != second || !c.Player().IsPlaying() {
		t.Error("second run is not the active one")
	}
	c.StopSequence()
	waitResult(t, second)
}

func TestPlayer_Validation(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	c := newTestControl(t, fake)

	if _, err := c.RunSequence(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Errorf("RunSequence(0) error = %v, want ErrValidation", err)
	}
	if n, _ := c.Display().Notice(AreaRun); n.Text != "Selecciona una secuencia" || n.OK {
		t.Errorf("notice = %+v", n)
	}
	if n := len(fake.Calls(repeatPath)); n != 0 {
		t.Errorf("poll calls = %d, want 0", n)
	}
}

func TestPlayer_RunOutlivesCallerContext(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Replies(
		testutil.Response{Status: http.StatusOK, Body: `{"data":[{"status_clave":1}]}`},
		testutil.Response{Status: http.StatusOK, Body: `{"data":[]}`},
	))
	c := newTestControl(t, fake, func(cfg *Config) { cfg.PlaybackDelay = 30 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	pb, _ := c.RunSequence(ctx, 1)
	cancel()

	if result := waitResult(t, pb); result.Outcome != OutcomeFinished {
		t.Errorf("Outcome = %q, want finished", result.Outcome)
	}
}

func TestControl_ModePolicy(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, repeatPath, testutil.Reply(http.StatusOK, `{"data":[{"status_clave":1}]}`))

	t.Run("exclusive", func(t *testing.T) {
		c := newTestControl(t, fake, func(cfg *Config) {
			cfg.ModePolicy = ModesExclusive
			cfg.PlaybackDelay = 10 * time.Millisecond
		})
		ctx := context.Background()

		_ = c.StartRecording()
		if _, err := c.RunSequence(ctx, 1); !errors.Is(err, ErrModeConflict) {
			t.Errorf("RunSequence() while recording error = %v, want ErrModeConflict", err)
		}
		c.StopRecording()

		pb, err := c.RunSequence(ctx, 1)
		if err != nil {
			t.Fatalf("RunSequence() error = %v", err)
		}
		if err := c.StartRecording(); !errors.Is(err, ErrModeConflict) {
			t.Errorf("StartRecording() while playing error = %v, want ErrModeConflict", err)
		}
		c.StopSequence()
		waitResult(t, pb)
	})

	t.Run("concurrent", func(t *testing.T) {
		c := newTestControl(t, fake, func(cfg *Config) { cfg.PlaybackDelay = 10 * time.Millisecond })
		ctx := context.Background()

		if err := c.StartRecording(); err != nil {
			t.Fatalf("StartRecording() error = %v", err)
		}
		pb, err := c.RunSequence(ctx, 1)
		if err != nil {
			t.Fatalf("RunSequence() while recording error = %v", err)
		}
		c.StopSequence()
		waitResult(t, pb)
	})
}

func TestStepText(t *testing.T) {
	tests := []struct {
		step api.ExecutedStep
		want string
	}{
		{api.ExecutedStep{Description: "Patrulla", StatusKey: 1}, "Patrulla"},
		{api.ExecutedStep{StatusKey: 2}, "Atrás"},
		{api.ExecutedStep{StatusKey: 0}, "Paso"},
		{api.ExecutedStep{StatusKey: 77}, "Paso"},
	}

	for _, tt := range tests {
		if got := stepText(&tt.step); got != tt.want {
			t.Errorf("stepText(%+v) = %q, want %q", tt.step, got, tt.want)
		}
	}
}
