// Package notifier listens on the rover's push channel.
//
// This package provides:
//   - A single WebSocket connection per Start, with a liveness ping on open
//   - Typed event decoding at the connection boundary
//   - Per-type and catch-all subscriptions
//   - A connection state indicator
//
// A dropped channel stays dropped: there is no reconnect. Malformed
// messages are logged and skipped without closing the connection.
package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ConnState describes the push channel connection.
type ConnState string

const (
	StateDisabled    ConnState = "desactivado"
	StateConnecting  ConnState = "conectando"
	StateConnected   ConnState = "conectado"
	StateClosed      ConnState = "cerrado"
	StateError       ConnState = "error"
	StateUnavailable ConnState = "no disponible"
)

// Conn is the subset of *websocket.Conn used by the notifier.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a push channel connection.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Handler is called when an event is received.
type Handler func(event *Event)

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds configuration for the notifier.
type Config struct {
	// URL is the push channel endpoint. Empty disables the notifier.
	URL string

	// Dial opens the connection. Default: WebSocketDialer.
	Dial Dialer

	// OnError is called when the channel fails to open or drops.
	OnError func(err error)

	// OnStateChange is called on every connection state change.
	OnStateChange func(state ConnState)

	// Logger for structured logging. Default: discard.
	Logger Logger
}

// pingMessage is sent once right after the connection opens.
var pingMessage = map[string]string{"type": "ping"}

// Subscription represents an active subscription to events.
type Subscription struct {
	eventType EventType
	handler   Handler
	id        int64
}

// allEvents keys catch-all subscriptions.
const allEvents EventType = "*"

// Notifier provides push event notification.
type Notifier struct {
	config *Config

	mu            sync.RWMutex
	subscriptions map[EventType][]*Subscription
	nextSubID     int64
	state         ConnState

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewNotifier creates a new notifier.
func NewNotifier(config *Config) *Notifier {
	if config == nil {
		config = &Config{}
	}
	if config.Dial == nil {
		config.Dial = WebSocketDialer(nil)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	state := StateConnecting
	if config.URL == "" {
		state = StateDisabled
	}

	return &Notifier{
		config:        config,
		subscriptions: make(map[EventType][]*Subscription),
		state:         state,
	}
}

// Start opens the channel and begins dispatching events.
func (n *Notifier) Start(ctx context.Context) error {
	if !n.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	n.done = make(chan struct{})
	ctx, n.cancel = context.WithCancel(ctx)
	go n.run(ctx)

	return nil
}

// Stop closes the channel and waits for the read loop to exit.
func (n *Notifier) Stop(ctx context.Context) error {
	if !n.started.Load() {
		return ErrNotStarted
	}

	n.cancel()
	select {
	case <-n.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	n.started.Store(false)
	return nil
}

// IsRunning returns true if the notifier is running.
func (n *Notifier) IsRunning() bool {
	return n.started.Load()
}

// State returns the current connection state.
func (n *Notifier) State() ConnState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Subscribe registers a handler for the given event type.
// Returns a function to unsubscribe.
func (n *Notifier) Subscribe(eventType EventType, handler Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &Subscription{
		eventType: eventType,
		handler:   handler,
		id:        n.nextSubID,
	}
	n.nextSubID++

	n.subscriptions[eventType] = append(n.subscriptions[eventType], sub)

	return func() {
		n.unsubscribe(eventType, sub.id)
	}
}

// SubscribeAll registers a handler for every event, pong and unknown
// types included.
func (n *Notifier) SubscribeAll(handler Handler) func() {
	return n.Subscribe(allEvents, handler)
}

// unsubscribe removes a subscription.
func (n *Notifier) unsubscribe(eventType EventType, id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs := n.subscriptions[eventType]
	for i, sub := range subs {
		if sub.id == id {
			n.subscriptions[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (n *Notifier) setState(state ConnState) {
	n.mu.Lock()
	n.state = state
	n.mu.Unlock()

	n.config.Logger.Debug("push channel state", "state", string(state))
	if n.config.OnStateChange != nil {
		n.config.OnStateChange(state)
	}
}

func (n *Notifier) reportError(err error) {
	n.config.Logger.Warn("push channel failure", "error", err.Error())
	if n.config.OnError != nil {
		n.config.OnError(err)
	}
}

// run connects once and reads until the connection drops or ctx ends.
func (n *Notifier) run(ctx context.Context) {
	defer close(n.done)

	if n.config.URL == "" {
		n.setState(StateDisabled)
		<-ctx.Done()
		return
	}

	n.setState(StateConnecting)
	conn, err := n.config.Dial(ctx, n.config.URL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		n.setState(StateUnavailable)
		n.reportError(errors.Join(ErrChannel, err))
		<-ctx.Done()
		return
	}

	// Unblock ReadMessage on shutdown.
	closed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-closed:
		}
	}()
	defer func() {
		close(closed)
		_ = conn.Close()
	}()

	n.setState(StateConnected)
	if err := conn.WriteJSON(pingMessage); err != nil {
		n.reportError(errors.Join(ErrChannel, err))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				n.setState(StateClosed)
				return
			}
			if isCleanClose(err) {
				n.setState(StateClosed)
			} else {
				n.setState(StateError)
			}
			n.reportError(errors.Join(ErrChannel, err))
			break
		}

		event, err := DecodeEvent(data)
		if err != nil {
			n.config.Logger.Warn("push message parse error", "error", err.Error())
			continue
		}
		n.dispatch(event)
	}

	<-ctx.Done()
}

// dispatch sends an event to the handlers of its type, then to catch-all
// handlers. A panicking handler is logged and does not stop the listener.
func (n *Notifier) dispatch(event *Event) {
	n.mu.RLock()
	subs := make([]*Subscription, 0, len(n.subscriptions[event.Type])+len(n.subscriptions[allEvents]))
	subs = append(subs, n.subscriptions[event.Type]...)
	subs = append(subs, n.subscriptions[allEvents]...)
	n.mu.RUnlock()

	for _, sub := range subs {
		n.call(sub, event)
	}
}

func (n *Notifier) call(sub *Subscription, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			n.config.Logger.Error("push handler panic", "event", event.Name, "panic", r)
		}
	}()
	// Handlers run synchronously to keep event order.
	sub.handler(event)
}

// isCleanClose reports errors that mean the peer closed the channel.
func isCleanClose(err error) bool {
	return errors.Is(err, io.EOF) || isWebSocketClose(err)
}
