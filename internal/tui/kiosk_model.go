package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/open-cmuq/tapin/internal/engine"
)

// KioskModel is the fullscreen tap screen driven by a keyboard-wedge RFID
// reader: the reader types the card UID and a newline, the kiosk toggles.
type KioskModel struct {
	width  int
	height int

	eng       *engine.Engine
	scopeSlug string
	input     textinput.Model

	// Last tap outcome, shown until the next tap or the clear tick
	result  *engine.ToggleResult
	tapErr  error
	shownAt time.Time
}

// toggleResultMsg carries the outcome of a tap back into the update loop
type toggleResultMsg struct {
	result *engine.ToggleResult
	err    error
}

// clearTickMsg hides a stale result card
type clearTickMsg struct{}

// NewKioskModel creates a kiosk model for one scope
func NewKioskModel(eng *engine.Engine, scopeSlug string) KioskModel {
	input := textinput.New()
	input.Placeholder = "Tap your card..."
	input.Width = 40

	// Apply color scheme
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
	input.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	input.Focus()

	return KioskModel{
		eng:       eng,
		scopeSlug: scopeSlug,
		input:     input,
	}
}

// Init initializes the kiosk model
func (m KioskModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m KioskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case toggleResultMsg:
		m.result = msg.result
		m.tapErr = msg.err
		m.shownAt = time.Now()
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return clearTickMsg{}
		})

	case clearTickMsg:
		// Only clear if nothing newer was shown in the meantime
		if time.Since(m.shownAt) >= 5*time.Second {
			m.result = nil
			m.tapErr = nil
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			cardUID := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if cardUID == "" {
				return m, nil
			}
			eng, slug := m.eng, m.scopeSlug
			return m, func() tea.Msg {
				result, err := eng.Toggle(context.Background(), cardUID, slug)
				return toggleResultMsg{result: result, err: err}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the kiosk screen
func (m KioskModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccentMain)).
		Bold(true).
		Render("tapin · " + m.scopeSlug)

	var card string
	switch {
	case m.tapErr != nil:
		card = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Render("✗ " + m.tapErr.Error())

	case m.result != nil && m.result.Action == engine.ActionCheckIn:
		card = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess)).
			Render(fmt.Sprintf("✓ Welcome, %s", m.result.User.Name))

	case m.result != nil:
		line := fmt.Sprintf("✓ Goodbye, %s — %dm this visit",
			m.result.User.Name, *m.result.Session.DurationMinutes)
		if m.result.Attendance != nil && m.result.Attendance.Eligible {
			line += " · attendance requirement met"
		}
		card = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess)).
			Render(line)

	default:
		card = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Render("Waiting for a tap")
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Render("esc to exit")

	content := lipgloss.JoinVertical(lipgloss.Center,
		title, "", m.input.View(), "", card, "", help)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(1, 4).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
