package components

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/styles"
)

// SpinnerModel shows a spinner while a background task runs.
type SpinnerModel struct {
	spinner spinner.Model
	message string
	style   lipgloss.Style
	done    bool
	err     error
}

type taskDoneMsg struct{ err error }

// NewSpinner creates a spinner with a message.
func NewSpinner(message string) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.ColorPrimary)

	return SpinnerModel{
		spinner: s,
		message: message,
		style:   styles.Theme.Muted,
	}
}

// Init implements tea.Model.
func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m SpinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.style.Render(m.message) + "\n"
}

// errSpinnerInterrupted is returned when ctrl+c ends the spinner before the task.
var errSpinnerInterrupted = errors.New("interrupted")

// RunWithSpinner runs task while rendering a spinner. Pressing ctrl+c cancels
// the task context and waits for the task to return.
func RunWithSpinner(ctx context.Context, message string, task func(ctx context.Context) error, programOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewSpinner(message), append(programOpts, tea.WithContext(ctx))...)

	result := make(chan error, 1)
	go func() {
		err := task(ctx)
		result <- err
		p.Send(taskDoneMsg{err: err})
	}()

	finalModel, runErr := p.Run()
	if m, ok := finalModel.(SpinnerModel); ok && !m.done {
		cancel()
		if err := <-result; err != nil {
			return err
		}
		if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
			return runErr
		}
		return errSpinnerInterrupted
	}
	return <-result
}
