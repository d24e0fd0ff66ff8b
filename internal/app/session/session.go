/*
Package session holds the reconciled client-side view of the chat: the roster of online users
and the ordered message log.

One State exists per mounted UI surface. It subscribes to the shared bus, applies every decoded
operation in arrival order, and notifies its surface after each change. Outbound chat messages go
through the shared transport; the State never touches the connection itself.
*/
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"lumochat/internal/app/bus"
	"lumochat/internal/app/protocol"
	"lumochat/internal/app/user"
	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/metrics"
	"lumochat/internal/pkg/randx"
)

// MaxContentBytes is the largest message body SubmitMessage accepts.
const MaxContentBytes = 5000

var (
	// ErrNotConnected is returned by SubmitMessage when the transport refused the frame.
	// The body is kept as the draft.
	ErrNotConnected = errors.New("session: not connected")

	// ErrMessageTooLong is returned by SubmitMessage for bodies over MaxContentBytes.
	ErrMessageTooLong = errors.New("session: message too long")

	// ErrClosed is returned by SubmitMessage after Close.
	ErrClosed = errors.New("session: closed")

	// ErrUnknownSender marks a message whose sender is missing from the roster.
	// It is logged, never returned: the message is kept with a placeholder profile.
	ErrUnknownSender = errors.New("session: unknown sender")
)

// Transport is the outbound half of the shared connection.
type Transport interface {
	Send(frame string) error
}

// reopener is implemented by transports that can announce a re-established connection.
type reopener interface {
	OnOpen(fn func()) (remove func())
}

// Subscriber is the inbound half: the shared bus.
type Subscriber interface {
	Subscribe(handler bus.Handler) *bus.Subscription
}

// Entry is one rendered line of the message log.
type Entry struct {
	Message protocol.ChatMessage `json:"message"`
	Sender  user.Profile         `json:"sender"`

	// KnownSender is false when Sender is a placeholder.
	KnownSender bool `json:"knownSender"`
}

// Option configures a State.
type Option func(*State)

// WithNotifier sets the callback invoked after every change to roster, log or status.
// It runs on the bus delivery goroutine and must not block.
func WithNotifier(fn func()) Option {
	return func(s *State) {
		s.notify = fn
	}
}

// WithSurface names the owning surface in logs.
func WithSurface(name string) Option {
	return func(s *State) {
		s.surface = name
	}
}

// State is the per-surface model.
type State struct {
	id        string
	identity  string
	surface   string
	transport Transport

	sub        *bus.Subscription
	removeOpen func()

	// mu protects every field below.
	mu     sync.RWMutex
	status Status
	roster []user.Profile
	log    []Entry
	draft  string

	notify func()
	logger zerolog.Logger
}

// New mounts a State: it subscribes to frames, then registers identity with the server.
// A failed Register send is logged and the State still becomes Registered; when the transport
// supports reopen hooks, Register is sent again on every new connection.
func New(subscriber Subscriber, transport Transport, identity string, opts ...Option) *State {
	s := &State{
		id:        randx.SessionID(),
		identity:  identity,
		surface:   "default",
		transport: transport,
		status:    StatusConnecting,
		roster:    []user.Profile{},
		log:       []Entry{},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = logx.Component("session").With().
		Str("session_id", s.id).
		Str("surface", s.surface).
		Str("identity", identity).
		Logger()

	s.sub = subscriber.Subscribe(s.handleFrame)

	if r, ok := transport.(reopener); ok {
		s.removeOpen = r.OnOpen(s.register)
	}

	s.register()
	s.transition(StatusRegistered)

	s.logger.Info().Msg("Session mounted.")

	return s
}

// register sends the Register operation for the declared identity.
func (s *State) register() {
	if s.Status() == StatusClosed {
		return
	}

	frame, err := protocol.Encode(protocol.Register{Name: s.identity})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode register frame.")
		return
	}

	if err := s.transport.Send(frame); err != nil {
		s.logger.Warn().Err(err).Msg("Register not sent; will retry when the connection reopens.")
		return
	}

	s.logger.Debug().Msg("Register sent.")
}

// handleFrame is the bus handler. Malformed frames are dropped so later frames still apply.
func (s *State) handleFrame(frame string) error {
	op, err := protocol.Decode(frame)
	if err != nil {
		metrics.Incr(metrics.SessionMalformed, 1)
		s.logger.Warn().Err(err).Str("frame", truncate(frame, 256)).Msg("Dropping malformed frame.")
		return nil
	}

	if s.apply(op) {
		s.changed()
	}

	return nil
}

// apply transitions the State for one operation and reports whether anything changed.
func (s *State) apply(op protocol.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusClosed {
		return false
	}

	switch op := op.(type) {
	case protocol.Users:
		s.roster = buildRoster(op.Names)
		s.status = StatusActive
		s.logger.Debug().Int("roster_size", len(s.roster)).Msg("Roster replaced.")
		return true

	case protocol.Message:
		s.log = append(s.log, s.entryFor(op.Chat))
		return true

	case protocol.Register:
		s.logger.Debug().Str("name", op.Name).Msg("Ignoring register frame from server.")
		return false

	default:
		s.logger.Warn().Str("kind", string(op.Kind())).Msg("Ignoring unsupported operation.")
		return false
	}
}

// entryFor resolves the sender against the roster. An empty sender never matches. Callers hold mu.
func (s *State) entryFor(msg protocol.ChatMessage) Entry {
	for _, p := range s.roster {
		if msg.From != "" && p.Name == msg.From {
			return Entry{Message: msg, Sender: p, KnownSender: true}
		}
	}

	metrics.Incr(metrics.SessionUnknownSender, 1)
	s.logger.Debug().Err(ErrUnknownSender).Str("from", msg.From).Msg("Using placeholder profile.")

	return Entry{Message: msg, Sender: user.Placeholder(msg.From), KnownSender: false}
}

// buildRoster converts the server's name list into profiles. Duplicate names keep their first
// position, since the name is the roster key.
func buildRoster(names []string) []user.Profile {
	roster := make([]user.Profile, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		roster = append(roster, user.NewProfile(name))
	}

	return roster
}

// SubmitMessage sends body as a chat message. Empty or whitespace-only bodies are ignored.
// On failure the body is retained as the draft and the error explains why; on success the
// draft is cleared.
func (s *State) SubmitMessage(body string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	if s.Status() == StatusClosed {
		return ErrClosed
	}

	if len(body) > MaxContentBytes {
		s.setDraft(body)
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLong, len(body), MaxContentBytes)
	}

	if err := s.transport.Send(protocol.EncodeSubmission(body)); err != nil {
		s.setDraft(body)
		s.logger.Warn().Err(err).Msg("Message not sent; keeping draft.")
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	s.setDraft("")
	return nil
}

func (s *State) setDraft(body string) {
	s.mu.Lock()
	s.draft = body
	s.mu.Unlock()
}

// Close unmounts the State: it unsubscribes from the bus and stops re-registering on reopen.
// Close is idempotent.
func (s *State) Close() {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return
	}
	s.status = StatusClosed
	s.mu.Unlock()

	s.sub.Unsubscribe()
	if s.removeOpen != nil {
		s.removeOpen()
	}

	s.logger.Info().Msg("Session unmounted.")
}

func (s *State) transition(to Status) {
	s.mu.Lock()
	if s.status == StatusClosed || s.status >= to {
		s.mu.Unlock()
		return
	}
	s.status = to
	s.mu.Unlock()

	s.changed()
}

func (s *State) changed() {
	if s.notify != nil {
		s.notify()
	}
}

// truncate shortens s to at most max bytes plus an ellipsis, cutting on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
