// Package relay republishes push events on a Redis pub/sub channel so that
// several dashboards can share one upstream push connection.
//
// Messages keep the push channel's wire shape ({"type", "payload"}), so a
// subscriber decodes them with notifier.DecodeEvent.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/youssefsiam38/roverpanel/notifier"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "roverpanel:events"

// ErrClosed is returned by Listen when the subscription channel closes.
var ErrClosed = errors.New("relay subscription closed")

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds configuration for the relay.
type Config struct {
	// Channel is the Redis pub/sub channel.
	// Default: roverpanel:events
	Channel string

	// Logger for structured logging. Default: discard.
	Logger Logger
}

// Relay publishes and consumes push events over Redis.
type Relay struct {
	client  redis.UniversalClient
	channel string
	logger  Logger
}

// New creates a relay on client.
func New(client redis.UniversalClient, config *Config) *Relay {
	if config == nil {
		config = &Config{}
	}
	channel := config.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Relay{client: client, channel: channel, logger: logger}
}

// Channel returns the Redis channel name.
func (r *Relay) Channel() string {
	return r.channel
}

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode renders event in the push channel's wire shape.
func Encode(event *notifier.Event) ([]byte, error) {
	return json.Marshal(message{Type: event.Name, Payload: event.Payload})
}

// Forward publishes event. Pong keepalives are not forwarded.
func (r *Relay) Forward(ctx context.Context, event *notifier.Event) error {
	if event == nil || event.Type == notifier.EventPong {
		return nil
	}

	data, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Name, err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}
	return nil
}

// Handler returns a notifier handler forwarding every event. Failures are
// logged.
func (r *Relay) Handler(ctx context.Context) notifier.Handler {
	return func(event *notifier.Event) {
		if err := r.Forward(ctx, event); err != nil {
			r.logger.Warn("relay publish failed", "channel", r.channel, "error", err)
		}
	}
}

// Listen subscribes to the channel and calls fn for every decoded event
// until ctx is done. Undecodable messages are logged and skipped.
func (r *Relay) Listen(ctx context.Context, fn notifier.Handler) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", "channel", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			event, err := notifier.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("relay message parse error", "error", err.Error())
				continue
			}
			fn(event)
		}
	}
}
