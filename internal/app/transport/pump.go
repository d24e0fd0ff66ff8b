package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lumochat/internal/pkg/metrics"
)

// link is one live connection and its outbound queue.
type link struct {
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// closed once the connection is released.
	done chan struct{}

	once   sync.Once
	logger zerolog.Logger
}

func newLink(conn *websocket.Conn, logger zerolog.Logger) *link {
	return &link{
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// release closes the connection exactly once. It reports whether this call did the work.
func (l *link) release() bool {
	released := false
	l.once.Do(func() {
		released = true
		close(l.done)
		if err := l.conn.Close(); err != nil {
			l.logger.Debug().Err(err).Msg("Connection close error.")
		}
	})
	return released
}

// readPump reads frames until the connection fails and publishes each text frame in
// arrival order. It is the only goroutine that publishes for this link.
func (c *Channel) readPump(l *link) {
	defer c.teardown(l)

	l.conn.SetReadLimit(maxFrameSize)

	if err := l.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		l.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Warn().Err(err).Msg("Connection lost.")
			}
			return
		}

		if messageType != websocket.TextMessage {
			l.logger.Debug().Int("message_type", messageType).Msg("Ignoring non-text frame.")
			continue
		}

		metrics.Incr(metrics.TransportRecv, 1)
		c.publisher.Publish(string(data))
	}
}

// writePump drains the outbound queue to the connection and keeps it alive with pings.
func (c *Channel) writePump(l *link) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if dropped := len(l.send); dropped > 0 {
			metrics.Incr(metrics.TransportDropped, int64(dropped))
			l.logger.Warn().Int("dropped", dropped).Msg("Discarding unsent frames.")
		}

		c.teardown(l)
	}()

	for {
		select {
		case frame := <-l.send:
			if !l.write(websocket.TextMessage, frame) {
				return
			}
			metrics.Incr(metrics.TransportSent, 1)

		case <-ticker.C:
			if !l.write(websocket.PingMessage, nil) {
				return
			}

		case <-l.done:
			return
		}
	}
}

// write performs one deadline-bounded write. It returns false when the pump should stop.
func (l *link) write(messageType int, payload []byte) bool {
	if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		l.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := l.conn.WriteMessage(messageType, payload); err != nil {
		l.logger.Error().Err(err).Int("message_type", messageType).Msg("Error writing frame")
		return false
	}

	return true
}
