package transport

import (
	"context"
	"time"
)

// Backoff bounds the delay between reconnect attempts. The delay doubles after every failed
// attempt and resets after a successful one.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// DefaultBackoff is used by Maintain when the zero Backoff is passed.
var DefaultBackoff = Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second}

// Maintain keeps the Channel connected until ctx is cancelled: it connects, waits for the
// connection to end, then redials with backoff. Every successful connect runs the OnOpen hooks.
func (c *Channel) Maintain(ctx context.Context, dialTimeout time.Duration, b Backoff) {
	if b.Min <= 0 || b.Max < b.Min {
		b = DefaultBackoff
	}
	delay := b.Min

	for {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		err := c.Connect(dialCtx)
		cancel()

		if err == nil {
			delay = b.Min
			select {
			case <-ctx.Done():
				return
			case <-c.Done():
				c.logger.Warn().Msg("Connection lost, reconnecting.")
			}
		} else if ctx.Err() == nil {
			c.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Connect failed.")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err != nil {
			delay = min(delay*2, b.Max)
		}
	}
}
