package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/youssefsiam38/roverpanel/notifier"
	"github.com/youssefsiam38/roverpanel/relay"
)

// pushSink receives push events and channel state.
type pushSink interface {
	SetPushState(state notifier.ConnState)
}

// openRelay connects to Redis when REDIS_ADDR is set. It returns nil, and
// a no-op closer, otherwise.
func openRelay(ctx context.Context, e *env) (*relay.Relay, func(), error) {
	addr := e.getenv(envRedisAddr)
	if addr == "" {
		return nil, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	r := relay.New(rdb, &relay.Config{Channel: e.getenv(envRedisChannel), Logger: e.logger})
	e.logger.Info("relaying push events", "addr", addr, "channel", r.Channel())
	return r, func() { _ = rdb.Close() }, nil
}

// startPush opens the push channel of url and feeds every event to
// handle, and to the relay when one is configured. The returned func stops
// the channel.
func startPush(ctx context.Context, e *env, url string, sink pushSink, rl *relay.Relay, handle notifier.Handler) (func(), error) {
	n := notifier.NewNotifier(&notifier.Config{
		URL:           url,
		Logger:        e.logger,
		OnStateChange: sink.SetPushState,
	})
	n.SubscribeAll(handle)
	if rl != nil {
		n.SubscribeAll(rl.Handler(ctx))
	}

	if err := n.Start(ctx); err != nil {
		return nil, err
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = n.Stop(stopCtx)
	}, nil
}
