package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"precedent/internal/app"
	"precedent/internal/domain"
	"precedent/internal/history"
)

// Run starts the shell on the wired app and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	m := New(ctx, Deps{
		Search:   a.Search,
		Upload:   a.Upload,
		History:  a.History,
		Renderer: a.Renderer,
		Teams:    a.Config.Search.Teams,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	a.Upload.OnTransition(func(s domain.UploadSession) { p.Send(uploadTransitionMsg(s)) })
	a.History.OnRefresh(func(s history.Snapshot) { p.Send(historyMsg(s)) })

	_, err := p.Run()
	return err
}
