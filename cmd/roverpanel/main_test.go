package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/youssefsiam38/roverpanel"
	"github.com/youssefsiam38/roverpanel/internal/testutil"
	"github.com/youssefsiam38/roverpanel/storage"
)

func testEnv(vars map[string]string) (*env, *bytes.Buffer) {
	var out bytes.Buffer
	return &env{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdout: &out,
		getenv: func(key string) string { return vars[key] },
	}, &out
}

func TestRun_Usage(t *testing.T) {
	e, out := testEnv(nil)

	if err := run(context.Background(), e, nil); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("run() error = %v, want flag.ErrHelp", err)
	}
	if !strings.Contains(out.String(), "sequences") {
		t.Errorf("usage does not list commands: %q", out.String())
	}

	if err := run(context.Background(), e, []string{"fly"}); err == nil {
		t.Error("run(fly) error = nil, want unknown command")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", "debug").Debug("hola", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json logger wrote %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "", "").Debug("oculto")
	if buf.Len() != 0 {
		t.Errorf("info logger wrote debug line %q", buf.String())
	}
}

func TestCommonFlags_Config(t *testing.T) {
	e, _ := testEnv(map[string]string{
		roverpanel.EnvAPIBase: "http://rover.local:5500",
		roverpanel.EnvSpeed:   "120",
	})

	fs, cf := newFlagSet("send", e)
	if err := fs.Parse([]string{"-api", "http://10.0.0.2:5500", "-push", "ws://10.0.0.2:5501"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := cf.config(e)
	if err != nil {
		t.Fatalf("config() error = %v", err)
	}
	if cfg.APIBase != "http://10.0.0.2:5500" {
		t.Errorf("APIBase = %q", cfg.APIBase)
	}
	if cfg.PushURL != "ws://10.0.0.2:5501" {
		t.Errorf("PushURL = %q", cfg.PushURL)
	}
	if cfg.Speed != 120 {
		t.Errorf("Speed = %d, want 120", cfg.Speed)
	}
}

func TestCommonFlags_ConfigInvalid(t *testing.T) {
	e, _ := testEnv(nil)
	fs, cf := newFlagSet("send", e)
	if err := fs.Parse([]string{"-push", "http://not-a-socket"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := cf.config(e); !errors.Is(err, roverpanel.ErrInvalidConfig) {
		t.Errorf("config() error = %v, want ErrInvalidConfig", err)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name   string
		target string
	}{
		{"memory", "memory"},
		{"file", filepath.Join(dir, "state.json")},
		{"sqlite", "sqlite:" + filepath.Join(dir, "state.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openStore(ctx, tt.target)
			if err != nil {
				t.Fatalf("openStore(%q) error = %v", tt.target, err)
			}
			defer closeStore()

			if err := store.Set(ctx, storage.KeyDeviceID, "3"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := store.Get(ctx, storage.KeyDeviceID)
			if err != nil || got != "3" {
				t.Errorf("Get() = %q, %v; want 3", got, err)
			}
		})
	}
}

func TestOpenStore_EmptySQLiteDSN(t *testing.T) {
	if _, _, err := openStore(context.Background(), "sqlite:"); err == nil {
		t.Error("openStore(sqlite:) error = nil")
	}
}

func TestRunSend(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	e, out := testEnv(map[string]string{roverpanel.EnvAPIBase: fake.URL()})

	err := run(context.Background(), e, []string{"send", "-state", "memory", "-device", "4", "-op", "2"})
	if err != nil {
		t.Fatalf("send error = %v", err)
	}

	calls := fake.Calls("/api/movimientos")
	if len(calls) != 1 {
		t.Fatalf("got %d movement calls, want 1", len(calls))
	}
	if calls[0].Int("dispositivo_id") != 4 || calls[0].Int("status_clave") != 2 || calls[0].Int("velocidad_pwm") != roverpanel.DefaultSpeed {
		t.Errorf("movement body = %v", calls[0].Body)
	}
	if !strings.Contains(out.String(), "ATRÁS ✓") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunSend_Speed(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		args []string
		want int
	}{
		{"explicit zero flag", nil, []string{"-speed", "0"}, 0},
		{"zero from environment", map[string]string{roverpanel.EnvSpeed: "0"}, nil, 0},
		{"flag wins over environment", map[string]string{roverpanel.EnvSpeed: "90"}, []string{"-speed", "255"}, 255},
		{"omitted", nil, nil, roverpanel.DefaultSpeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeAPI(t)
			vars := map[string]string{roverpanel.EnvAPIBase: fake.URL()}
			for k, v := range tt.vars {
				vars[k] = v
			}
			e, _ := testEnv(vars)

			args := append([]string{"send", "-state", "memory", "-op", "3"}, tt.args...)
			if err := run(context.Background(), e, args); err != nil {
				t.Fatalf("send error = %v", err)
			}

			calls := fake.Calls("/api/movimientos")
			if len(calls) != 1 {
				t.Fatalf("got %d movement calls, want 1", len(calls))
			}
			if _, ok := calls[0].Body["velocidad_pwm"]; !ok {
				t.Fatalf("movement body has no velocidad_pwm: %v", calls[0].Body)
			}
			if got := calls[0].Int("velocidad_pwm"); got != tt.want {
				t.Errorf("velocidad_pwm = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunRecord(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	e, out := testEnv(map[string]string{roverpanel.EnvAPIBase: fake.URL()})

	err := run(context.Background(), e, []string{"record", "-state", "memory", "-ops", "1,1,8", "-name", "ronda"})
	if err != nil {
		t.Fatalf("record error = %v", err)
	}

	if n := len(fake.Calls("/api/movimientos")); n != 3 {
		t.Errorf("got %d movement calls, want 3", n)
	}
	steps := fake.Calls("/api/rutas/paso")
	if len(steps) != 3 {
		t.Fatalf("got %d step calls, want 3", len(steps))
	}
	for i, c := range steps {
		if c.Int("orden") != i+1 {
			t.Errorf("step %d orden = %d", i, c.Int("orden"))
		}
	}
	if steps[2].Int("status_clave") != 8 {
		t.Errorf("last step status_clave = %d, want 8", steps[2].Int("status_clave"))
	}
	if !strings.Contains(out.String(), `"ronda" guardada (3 pasos)`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunRecord_BadOps(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	e, _ := testEnv(map[string]string{roverpanel.EnvAPIBase: fake.URL()})

	err := run(context.Background(), e, []string{"record", "-state", "memory", "-ops", "1,x", "-name", "ronda"})
	if !errors.Is(err, roverpanel.ErrValidation) {
		t.Errorf("record error = %v, want ErrValidation", err)
	}
	if len(fake.AllCalls()) != 0 {
		t.Errorf("remote API was called %d times", len(fake.AllCalls()))
	}
}

func TestRunSequences(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodGet, "/api/rutas/ultimas", testutil.Reply(http.StatusOK,
		`{"data":[{"secuencia_id":9,"nombre_secuencia":"patrulla","fecha_creacion":"2024-03-01 18:30:00"}]}`))
	e, out := testEnv(map[string]string{roverpanel.EnvAPIBase: fake.URL()})

	if err := run(context.Background(), e, []string{"sequences", "-state", "memory"}); err != nil {
		t.Fatalf("sequences error = %v", err)
	}
	if !strings.Contains(out.String(), "patrulla") || !strings.Contains(out.String(), "01/03/2024, 12:30:00") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunPlay(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Handle(http.MethodPost, "/api/rutas/repetir", testutil.Replies(
		testutil.Response{Status: http.StatusOK, Body: `{"data":[{"orden_ejecutado":1,"status_clave":1,"descripcion":"Adelante"}]}`},
		testutil.Response{Status: http.StatusOK, Body: `{"data":[]}`},
	))
	e, out := testEnv(map[string]string{
		roverpanel.EnvAPIBase:       fake.URL(),
		roverpanel.EnvPlaybackDelay: "1",
	})

	if err := run(context.Background(), e, []string{"play", "-state", "memory", "-id", "9"}); err != nil {
		t.Fatalf("play error = %v", err)
	}
	if n := len(fake.Calls("/api/rutas/repetir")); n != 2 {
		t.Errorf("got %d polls, want 2", n)
	}
	if !strings.Contains(out.String(), "ADELANTE") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunWatch_NoPushURL(t *testing.T) {
	e, _ := testEnv(nil)
	if err := run(context.Background(), e, []string{"watch"}); !errors.Is(err, roverpanel.ErrInvalidConfig) {
		t.Errorf("watch error = %v, want ErrInvalidConfig", err)
	}
}
