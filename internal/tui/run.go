package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"lumochat/internal/app/media"
	"lumochat/internal/app/session"
)

// Transport is the shared connection as seen by the terminal: it sends frames and
// reports whether it is open.
type Transport interface {
	session.Transport
	Link
}

// Run mounts a session for the terminal, runs the program until the user quits or ctx is
// cancelled, and unmounts the session on the way out.
func Run(ctx context.Context, subscriber session.Subscriber, transport Transport, identity string, svc media.Service, opts ...tea.ProgramOption) error {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	s := session.New(subscriber, transport, identity,
		session.WithSurface("tui"),
		session.WithNotifier(notify),
	)
	defer s.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(s, transport, svc, changes), opts...)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal surface: %w", err)
	}

	return nil
}
