// Package tui hosts a conversation panel in a bubbletea program.
//
// The bubbletea Update loop is the panel's event loop: Enter calls Panel.Begin, the gateway round
// trip runs as a tea.Cmd, and its result comes back as a message that Update passes to
// Panel.Complete.
package tui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/korylprince/knowledge-chatbot/conversation"
	"github.com/korylprince/knowledge-chatbot/render"
	"github.com/rs/zerolog/log"
)

const (
	headerHeight = 1
	footerHeight = 3 //separator, input, status
)

//App is the root bubbletea model
type App struct {
	ctx   context.Context
	panel *conversation.Panel

	style    string
	renderer *render.Terminal
	rendered map[int64]string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width, height int
	status        string
}

//NewApp returns an App hosting panel. style is passed to render.NewTerminal.
//ctx is used for gateway requests.
func NewApp(ctx context.Context, panel *conversation.Panel, style string) *App {
	ti := textinput.New()
	ti.Placeholder = "Ask about your data"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &App{
		ctx:      ctx,
		panel:    panel,
		style:    style,
		rendered: make(map[int64]string),
		viewport: viewport.New(0, 0),
		input:    ti,
		spinner:  sp,
	}
}

func (m *App) Init() tea.Cmd {
	return textinput.Blink
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case responseMsg:
		outcome := m.panel.Complete(msg.resp, msg.err)
		log.Debug().Stringer("outcome", outcome).Msg("tui: request resolved")
		m.status = ""
		m.input.SetValue(m.panel.Draft())
		cmd := m.input.Focus()
		m.refresh()
		return m, cmd

	case spinner.TickMsg:
		if !m.panel.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if !m.panel.Busy() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "ctrl+y":
		m.copyLastReply()
		return m, nil

	case "enter":
		m.panel.SetDraft(m.input.Value())
		req, ok := m.panel.Begin()
		if !ok {
			return m, nil
		}
		m.input.SetValue(m.panel.Draft())
		m.input.Blur()
		m.status = ""
		m.refresh()
		return m, tea.Batch(sendCmd(m.ctx, m.panel, req), m.spinner.Tick)
	}

	if m.panel.Busy() {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.panel.SetDraft(m.input.Value())
	return m, cmd
}

func (m *App) copyLastReply() {
	msgs := m.panel.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author != conversation.System {
			continue
		}
		if err := clipboard.WriteAll(msgs[i].Payload); err != nil {
			log.Debug().Err(err).Msg("tui: could not write clipboard")
			m.status = "Could not copy to clipboard"
			return
		}
		m.status = "Copied last reply"
		return
	}
	m.status = "Nothing to copy"
}

func (m *App) resize(width, height int) {
	m.width = width
	m.height = height

	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-footerHeight, 1)
	m.input.Width = max(width-len(m.input.Prompt)-1, 1)

	r, err := render.NewTerminal(max(width-2, 20), m.style)
	if err != nil {
		log.Error().Err(err).Msg("tui: could not create renderer")
		return
	}
	m.renderer = r
	m.rendered = make(map[int64]string)
	m.refresh()
}

//refresh re-renders the log into the viewport and scrolls to the newest message
func (m *App) refresh() {
	if m.renderer == nil {
		return
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *App) renderLog() string {
	var blocks []string
	for _, msg := range m.panel.Messages() {
		if !msg.Kind.Known() {
			continue
		}
		body, ok := m.rendered[msg.ID]
		if !ok {
			out, err := m.renderer.Render(msg)
			if err != nil {
				log.Debug().Err(err).Int64("id", msg.ID).Msg("tui: could not render message")
				out = mutedStyle.Render("[chart could not be displayed]")
			}
			body = out
			m.rendered[msg.ID] = body
		}
		blocks = append(blocks, label(msg.Author)+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

func label(a conversation.Author) string {
	if a == conversation.User {
		return userLabelStyle.Render("You:")
	}
	return systemLabelStyle.Render("Assistant:")
}

func (m *App) View() string {
	if m.width == 0 || m.height == 0 {
		return "initializing..."
	}

	sep := separatorStyle.Render(strings.Repeat("─", m.width))

	status := m.status
	if m.panel.Busy() {
		status = m.spinner.View() + " waiting for reply"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Chatbot"),
		m.viewport.View(),
		sep,
		m.input.View(),
		mutedStyle.Render(status),
	)
}
