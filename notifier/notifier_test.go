package notifier

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockConn implements Conn for testing. Messages pushed on in are returned
// by ReadMessage; closing in makes ReadMessage return readErr.
type mockConn struct {
	in      chan []byte
	readErr error

	mu      sync.Mutex
	written []any
	closed  atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func newMockConn(readErr error) *mockConn {
	return &mockConn{
		in:      make(chan []byte, 10),
		readErr: readErr,
		done:    make(chan struct{}),
	}
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, v)
	return nil
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-m.in:
		if !ok {
			return 0, nil, m.readErr
		}
		return websocket.TextMessage, data, nil
	case <-m.done:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (m *mockConn) Close() error {
	m.closed.Store(true)
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *mockConn) writes() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.written...)
}

// mockDialer counts dials and hands out a fixed connection or error.
type mockDialer struct {
	conn  *mockConn
	err   error
	calls atomic.Int32
}

func (d *mockDialer) dial(ctx context.Context, url string) (Conn, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestNotifier_StartStop(t *testing.T) {
	conn := newMockConn(io.EOF)
	dialer := &mockDialer{conn: conn}
	n := NewNotifier(&Config{URL: "ws://rover/ws", Dial: dialer.dial})

	ctx := context.Background()

	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if !n.IsRunning() {
		t.Error("Expected notifier to be running")
	}

	// Second start should fail
	if err := n.Start(ctx); err != ErrAlreadyStarted {
		t.Fatalf("Start() error = %v, want %v", err, ErrAlreadyStarted)
	}

	waitFor(t, func() bool { return n.State() == StateConnected })

	if err := n.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if n.IsRunning() {
		t.Error("Expected notifier to not be running")
	}
	if !conn.closed.Load() {
		t.Error("Expected connection to be closed on stop")
	}
	if n.State() != StateClosed {
		t.Errorf("State() = %q, want %q", n.State(), StateClosed)
	}
}

func TestNotifier_StopNotStarted(t *testing.T) {
	n := NewNotifier(nil)

	if err := n.Stop(context.Background()); err != ErrNotStarted {
		t.Fatalf("Stop() error = %v, want %v", err, ErrNotStarted)
	}
}

func TestNotifier_DisabledWithoutURL(t *testing.T) {
	dialer := &mockDialer{conn: newMockConn(io.EOF)}
	n := NewNotifier(&Config{Dial: dialer.dial})

	if n.State() != StateDisabled {
		t.Errorf("State() = %q, want %q", n.State(), StateDisabled)
	}

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if dialer.calls.Load() != 0 {
		t.Errorf("dial calls = %d, want 0", dialer.calls.Load())
	}
	if n.State() != StateDisabled {
		t.Errorf("State() = %q, want %q", n.State(), StateDisabled)
	}
}

func TestNotifier_PingOnOpen(t *testing.T) {
	conn := newMockConn(io.EOF)
	n := NewNotifier(&Config{URL: "ws://rover/ws", Dial: (&mockDialer{conn: conn}).dial})

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer n.Stop(ctx)

	waitFor(t, func() bool { return len(conn.writes()) == 1 })

	ping, ok := conn.writes()[0].(map[string]string)
	if !ok || ping["type"] != "ping" {
		t.Errorf("first write = %#v, want ping", conn.writes()[0])
	}
}

func TestNotifier_Dispatch(t *testing.T) {
	conn := newMockConn(io.EOF)
	n := NewNotifier(&Config{URL: "ws://rover/ws", Dial: (&mockDialer{conn: conn}).dial})

	var mu sync.Mutex
	var movements []MovementPayload
	var all []string

	n.Subscribe(EventMovementInserted, func(e *Event) {
		p, ok := e.Movement()
		if !ok {
			t.Error("expected movement payload")
		}
		mu.Lock()
		movements = append(movements, p)
		mu.Unlock()
	})
	n.SubscribeAll(func(e *Event) {
		mu.Lock()
		all = append(all, e.Name)
		mu.Unlock()
	})

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer n.Stop(ctx)

	conn.in <- []byte(`{"type":"movimiento.insertado","payload":{"status_clave":8,"velocidad_pwm":200}}`)
	conn.in <- []byte(`not json`)
	conn.in <- []byte(`{"type":"pong"}`)
	conn.in <- []byte(`{"type":"bateria.baja"}`)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(all) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	if len(movements) != 1 || movements[0] != (MovementPayload{StatusKey: 8, SpeedPWM: 200}) {
		t.Errorf("movements = %+v", movements)
	}
	want := []string{"movimiento.insertado", "pong", "bateria.baja"}
	for i, name := range want {
		if all[i] != name {
			t.Errorf("all[%d] = %q, want %q", i, all[i], name)
		}
	}
	if n.State() != StateConnected {
		t.Errorf("malformed message changed state to %q", n.State())
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	conn := newMockConn(io.EOF)
	n := NewNotifier(&Config{URL: "ws://rover/ws", Dial: (&mockDialer{conn: conn}).dial})

	var first, second atomic.Int32
	unsubscribe := n.Subscribe(EventPong, func(e *Event) { first.Add(1) })
	n.Subscribe(EventPong, func(e *Event) { second.Add(1) })
	unsubscribe()

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer n.Stop(ctx)

	conn.in <- []byte(`{"type":"pong"}`)
	waitFor(t, func() bool { return second.Load() == 1 })

	if first.Load() != 0 {
		t.Errorf("unsubscribed handler called %d times", first.Load())
	}
}

func TestNotifier_HandlerPanicKeepsListening(t *testing.T) {
	conn := newMockConn(io.EOF)
	n := NewNotifier(&Config{URL: "ws://rover/ws", Dial: (&mockDialer{conn: conn}).dial})

	var calls atomic.Int32
	n.Subscribe(EventPong, func(e *Event) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer n.Stop(ctx)

	conn.in <- []byte(`{"type":"pong"}`)
	conn.in <- []byte(`{"type":"pong"}`)
	waitFor(t, func() bool { return calls.Load() == 2 })
}

func TestNotifier_DropDoesNotReconnect(t *testing.T) {
	tests := []struct {
		name    string
		readErr error
		want    ConnState
	}{
		{"clean close", &websocket.CloseError{Code: websocket.CloseNormalClosure}, StateClosed},
		{"eof", io.EOF, StateClosed},
		{"abnormal", &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, StateError},
		{"reset", errors.New("connection reset by peer"), StateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newMockConn(tt.readErr)
			dialer := &mockDialer{conn: conn}

			var errCount atomic.Int32
			n := NewNotifier(&Config{
				URL:  "ws://rover/ws",
				Dial: dialer.dial,
				OnError: func(err error) {
					if !errors.Is(err, ErrChannel) {
						t.Errorf("OnError(%v) does not wrap ErrChannel", err)
					}
					errCount.Add(1)
				},
			})

			ctx := context.Background()
			if err := n.Start(ctx); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			waitFor(t, func() bool { return n.State() == StateConnected })
			close(conn.in)
			waitFor(t, func() bool { return n.State() == tt.want })

			time.Sleep(30 * time.Millisecond)
			if dialer.calls.Load() != 1 {
				t.Errorf("dial calls = %d, want 1", dialer.calls.Load())
			}
			if errCount.Load() != 1 {
				t.Errorf("OnError calls = %d, want 1", errCount.Load())
			}
			if !n.IsRunning() {
				t.Error("Expected notifier to keep running until Stop")
			}

			if err := n.Stop(ctx); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}
		})
	}
}

func TestNotifier_DialFailure(t *testing.T) {
	dialer := &mockDialer{err: errors.New("connection refused")}

	var states []ConnState
	var mu sync.Mutex
	var gotErr atomic.Value

	n := NewNotifier(&Config{
		URL:  "ws://rover/ws",
		Dial: dialer.dial,
		OnError: func(err error) {
			gotErr.Store(err)
		},
		OnStateChange: func(state ConnState) {
			mu.Lock()
			states = append(states, state)
			mu.Unlock()
		},
	})

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return n.State() == StateUnavailable })
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	err, _ := gotErr.Load().(error)
	if !errors.Is(err, ErrChannel) {
		t.Errorf("OnError error = %v, want ErrChannel", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateConnecting || states[1] != StateUnavailable {
		t.Errorf("states = %v, want [conectando no disponible]", states)
	}
}

func TestIsCleanClose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"eof", io.EOF, true},
		{"normal", &websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{"going away", &websocket.CloseError{Code: websocket.CloseGoingAway}, true},
		{"abnormal", &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCleanClose(tt.err); got != tt.want {
				t.Errorf("isCleanClose(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
