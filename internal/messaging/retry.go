package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrPermanent marks a handler error that redelivery cannot fix, such as a
// malformed payload. Such messages are logged and acknowledged.
var ErrPermanent = errors.New("permanent handler failure")

// newBackOff is the retry schedule between handler attempts.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

// Handle runs handler on payload until it succeeds or fails with
// ErrPermanent, retrying other errors with exponential backoff. It returns
// nil when the message may be acknowledged and ctx's error when ctx ended
// first, in which case the message must be left for redelivery.
func Handle(ctx context.Context, topic string, payload []byte, handler func(ctx context.Context, payload []byte) error) error {
	attempt := func() (struct{}, error) {
		err := handler(ctx, payload)
		if errors.Is(err, ErrPermanent) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("Handler failed, retrying", "topic", topic, "retry_in", wait, "err", err)
	}

	for {
		_, err := backoff.Retry(ctx, attempt, backoff.WithBackOff(newBackOff()), backoff.WithNotify(notify))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrPermanent):
			slog.Error("Dropping message", "topic", topic, "err", err)
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}
		// The retry window elapsed; start a new one.
		slog.Error("Handler still failing", "topic", topic, "err", err)
	}
}
