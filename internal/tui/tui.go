package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/open-cmuq/tapin/internal/engine"
)

// RunKioskTUI starts the fullscreen tap kiosk for a scope
func RunKioskTUI(eng *engine.Engine, scopeSlug string) error {
	model := NewKioskModel(eng, scopeSlug)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
