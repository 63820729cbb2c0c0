package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/smartguide/smartguide/pkg/chat"
)

// Observer forwards orchestrator state changes into a running program. Pass
// Notify to chat.WithObserver before the program starts.
type Observer struct {
	program atomic.Pointer[tea.Program]
}

// Notify sends st to the attached program, if any.
func (o *Observer) Notify(st chat.State) {
	if p := o.program.Load(); p != nil {
		p.Send(StateMsg(st))
	}
}

// Run shows the chat screen for orch until the user quits or ctx is done. A
// reply still streaming when the screen closes is cancelled.
func Run(ctx context.Context, orch *chat.Orchestrator, obs *Observer) error {
	m := NewModel(ctx, orch,
		WithColorProfile(termenv.ColorProfile()),
		WithDarkBackground(termenv.HasDarkBackground()),
	)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	obs.program.Store(p)
	defer obs.program.Store(nil)

	_, err := p.Run()
	return err
}
