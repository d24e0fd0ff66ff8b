/*
Package tui is the terminal surface of the chat client.

It mounts one session State, renders the roster next to the message log, and submits the input
line on Enter. Change notifications from the session arrive on a channel and trigger a re-render.
*/
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lumochat/internal/app/media"
	"lumochat/internal/app/session"
	"lumochat/internal/app/user"
)

const shareCommand = "/share "

// Session is the part of session.State the terminal reads and drives.
type Session interface {
	Identity() string
	Status() session.Status
	Roster() []user.Profile
	Messages() []session.Entry
	SubmitMessage(body string) error
}

// Link reports whether the shared chat connection is open.
type Link interface {
	IsOpen() bool
}

// changedMsg tells the model to re-read the session.
type changedMsg struct{}

// shareResultMsg carries the outcome of an image upload.
type shareResultMsg struct {
	path string
	url  string
	err  error
}

// Model is the bubbletea model of the terminal surface.
type Model struct {
	session Session
	link    Link
	media   media.Service
	changes <-chan struct{}

	input    textinput.Model
	viewport viewport.Model

	roster  []user.Profile
	entries []session.Entry
	banner  string
	sharing bool

	width        int
	height       int
	sidebarWidth int
}

// NewModel builds the model. changes receives a value whenever the session changed;
// svc may be nil when image sharing is not configured.
func NewModel(s Session, link Link, svc media.Service, changes <-chan struct{}) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = session.MaxContentBytes
	input.Width = 50
	input.Focus()

	m := Model{
		session:      s,
		link:         link,
		media:        svc,
		changes:      changes,
		input:        input,
		viewport:     viewport.New(80, 20),
		sidebarWidth: 24,
	}
	m.refresh()

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changes))
}

// waitForChange blocks until the session reports a change.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case shareResultMsg:
		m.sharing = false
		if msg.err != nil {
			m.banner = describe(msg.err)
			return m, nil
		}
		m.send(msg.url, false)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles Enter: either a /share command or a plain chat message.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	if path, ok := strings.CutPrefix(value, shareCommand); ok {
		path = strings.TrimSpace(path)
		if m.media == nil {
			m.banner = "Image sharing is not configured."
			return m, nil
		}
		if path == "" || m.sharing {
			return m, nil
		}
		m.sharing = true
		m.banner = ""
		m.input.Reset()
		return m, shareFile(m.media, path)
	}

	m.send(value, true)
	return m, nil
}

// send submits body. When fromInput is set the input line is cleared on success and kept
// on failure; otherwise a failed body is put back into the input so it is not lost.
func (m *Model) send(body string, fromInput bool) {
	if strings.TrimSpace(body) == "" {
		return
	}

	err := m.session.SubmitMessage(body)
	if err != nil {
		m.banner = describe(err)
		if !fromInput {
			m.input.SetValue(body)
		}
		return
	}

	m.banner = ""
	if fromInput {
		m.input.Reset()
	}
}

// shareFile uploads the image at path and reports the resulting URL.
func shareFile(svc media.Service, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return shareResultMsg{path: path, err: err}
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return shareResultMsg{path: path, err: err}
		}

		url, err := svc.Share(context.Background(), filepath.Base(path), info.Size(), f)
		return shareResultMsg{path: path, url: url, err: err}
	}
}

// describe turns a submit or share failure into banner text.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNotConnected):
		return "Not connected. Your message was kept; press Enter to retry."
	case errors.Is(err, session.ErrMessageTooLong):
		return fmt.Sprintf("Message is too long (max %d bytes).", session.MaxContentBytes)
	case errors.Is(err, session.ErrClosed):
		return "Session has ended."
	case errors.Is(err, media.ErrFileTypeInvalid):
		return "Only images can be shared."
	case errors.Is(err, media.ErrFileSizeInvalid):
		return fmt.Sprintf("Images must be at most %d MB.", media.MaxAttachmentSizeMB)
	case errors.Is(err, os.ErrNotExist):
		return "File not found."
	default:
		return "Image upload failed."
	}
}

func (m *Model) refresh() {
	m.roster = m.session.Roster()
	m.entries = m.session.Messages()
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.sidebarWidth = max(width/4, 20)

	chatWidth := max(width-m.sidebarWidth-4, 20)
	viewportHeight := max(height-2-4-3, 3)

	m.viewport.Width = chatWidth - 2
	m.viewport.Height = viewportHeight
	m.input.Width = max(chatWidth-6, 10)

	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m Model) renderLog() string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for _, e := range m.entries {
		nameStyle := otherNameStyle
		switch {
		case !e.KnownSender:
			nameStyle = unknownNameStyle
		case e.Message.From == m.session.Identity():
			nameStyle = ownNameStyle
		}

		body := e.Message.Body
		if media.IsImageReference(body) {
			body = imageStyle.Render("[image] " + body)
		}

		fmt.Fprintf(&b, "%s: %s\n", nameStyle.Render(e.Message.From), body)
	}
	return b.String()
}

func (m Model) sidebarView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Online (%d)", len(m.roster))))
	b.WriteString("\n\n")

	if len(m.roster) == 0 {
		b.WriteString(mutedStyle.Render("Nobody yet."))
	}
	for _, p := range m.roster {
		style := otherNameStyle
		if p.Name == m.session.Identity() {
			style = ownNameStyle
		}
		b.WriteString(style.Render(p.Name) + "\n")
	}

	style := sidebarStyle
	if m.height > 0 {
		style = style.Width(m.sidebarWidth - 2).Height(m.height - 2)
	}
	return style.Render(b.String())
}

func (m Model) headerText() string {
	text := fmt.Sprintf("%s · %s", m.session.Identity(), m.session.Status())
	if m.link != nil && !m.link.IsOpen() {
		text += " · disconnected"
	}
	if m.sharing {
		text += " · uploading..."
	}
	return text
}

func (m Model) View() string {
	footer := m.input.View()
	if m.banner != "" {
		footer = bannerStyle.Render(m.banner) + "\n" + footer
	}

	chat := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(m.headerText()),
		m.viewport.View(),
		footerStyle.Render(footer),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), chatWindowStyle.Render(chat))
}
