package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/korylprince/knowledge-chatbot/conversation"
)

//responseMsg carries the result of a gateway round trip back to Update
type responseMsg struct {
	resp *conversation.Response
	err  error
}

//sendCmd performs the round trip off the event loop
func sendCmd(ctx context.Context, panel *conversation.Panel, req conversation.Request) tea.Cmd {
	return func() tea.Msg {
		resp, err := panel.Send(ctx, req)
		return responseMsg{resp: resp, err: err}
	}
}

//Run runs the App until the user quits
func Run(ctx context.Context, panel *conversation.Panel, style string) error {
	p := tea.NewProgram(NewApp(ctx, panel, style), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
