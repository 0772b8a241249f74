// Package components provides the interactive and rendered pieces of the CLI.
package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/styles"
)

// ConfirmResult represents the result of a confirmation dialog.
type ConfirmResult int

const (
	ConfirmPending ConfirmResult = iota
	ConfirmYes
	ConfirmNo
	ConfirmCancelled
)

// ConfirmModel is a Yes/No confirmation dialog. No is focused by default.
type ConfirmModel struct {
	question    string
	description string
	warning     string
	yesLabel    string
	noLabel     string
	focused     bool // true = Yes is focused
	result      ConfirmResult

	questionStyle    lipgloss.Style
	descriptionStyle lipgloss.Style
	buttonStyle      lipgloss.Style
	focusedStyle     lipgloss.Style
}

// ConfirmOption configures a ConfirmModel.
type ConfirmOption func(*ConfirmModel)

// NewConfirm creates a new confirmation dialog.
func NewConfirm(question string, opts ...ConfirmOption) ConfirmModel {
	m := ConfirmModel{
		question:         question,
		yesLabel:         "Yes",
		noLabel:          "No",
		result:           ConfirmPending,
		questionStyle:    styles.Theme.Bold,
		descriptionStyle: styles.Theme.Muted,
		buttonStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(styles.ColorText),
		focusedStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(styles.ColorBg).
			Background(styles.ColorPrimary),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// WithDescription adds a description to the confirmation.
func WithDescription(desc string) ConfirmOption {
	return func(m *ConfirmModel) {
		m.description = desc
	}
}

// WithWarning shows a boxed warning above the buttons.
func WithWarning(warning string) ConfirmOption {
	return func(m *ConfirmModel) {
		m.warning = warning
	}
}

// WithLabels customizes the Yes/No labels.
func WithLabels(yes, no string) ConfirmOption {
	return func(m *ConfirmModel) {
		m.yesLabel = yes
		m.noLabel = no
	}
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "left", "h", "right", "l", "tab", "shift+tab":
			m.focused = !m.focused
		case "y", "Y":
			m.result = ConfirmYes
			return m, tea.Quit
		case "n", "N":
			m.result = ConfirmNo
			return m, tea.Quit
		case "enter":
			if m.focused {
				m.result = ConfirmYes
			} else {
				m.result = ConfirmNo
			}
			return m, tea.Quit
		case "esc", "ctrl+c", "q":
			m.result = ConfirmCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.result != ConfirmPending {
		return ""
	}

	var b strings.Builder

	if m.warning != "" {
		b.WriteString(styles.Theme.BoxWarning.Render(styles.RenderWarning(m.warning)))
		b.WriteString("\n")
	}

	b.WriteString(m.questionStyle.Render(m.question))
	b.WriteString("\n")

	if m.description != "" {
		b.WriteString(m.descriptionStyle.Render(m.description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	yesButton := m.buttonStyle.Render(m.yesLabel)
	noButton := m.focusedStyle.Render(m.noLabel)
	if m.focused {
		yesButton = m.focusedStyle.Render(m.yesLabel)
		noButton = m.buttonStyle.Render(m.noLabel)
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, yesButton, "  ", noButton))
	b.WriteString("\n\n")

	b.WriteString(styles.RenderKeyHelp("y/n", "select") + "  " +
		styles.RenderKeyHelp("enter", "confirm") + "  " +
		styles.RenderKeyHelp("esc", "cancel"))
	b.WriteString("\n")

	return b.String()
}

// Result returns the confirmation result.
func (m ConfirmModel) Result() ConfirmResult {
	return m.result
}

// Confirmed returns true if the user confirmed.
func (m ConfirmModel) Confirmed() bool {
	return m.result == ConfirmYes
}

// Cancelled returns true if the user cancelled.
func (m ConfirmModel) Cancelled() bool {
	return m.result == ConfirmCancelled
}

// RunConfirm runs a confirmation dialog and returns the answer. A cancelled
// dialog counts as a decline.
func RunConfirm(question string, programOpts []tea.ProgramOption, opts ...ConfirmOption) (bool, error) {
	m := NewConfirm(question, opts...)
	p := tea.NewProgram(m, programOpts...)
	finalModel, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("error running confirmation: %w", err)
	}
	result := finalModel.(ConfirmModel)
	if result.Cancelled() {
		return false, nil
	}
	return result.Confirmed(), nil
}
