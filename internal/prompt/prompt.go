// Package prompt asks the user whether an installed package may be
// overwritten.
package prompt

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/frederic-klein/yapi/internal/promoter"
)

// Choice is an answer to the overwrite question.
type Choice int

const (
	Yes Choice = iota
	No
	YesToAll
	NoToAll
)

var choices = []struct {
	choice Choice
	label  string
	key    string
}{
	{Yes, "Overwrite", "y"},
	{No, "Skip", "n"},
	{YesToAll, "Overwrite all", "Y"},
	{NoToAll, "Skip all", "N"},
}

// Decision returns the promoter decision for c.
func (c Choice) Decision() (overwrite bool, sticky promoter.Policy) {
	switch c {
	case Yes:
		return true, promoter.Ask
	case YesToAll:
		return true, promoter.Yes
	case NoToAll:
		return false, promoter.No
	}
	return false, promoter.Ask
}

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// model asks a single overwrite question.
type model struct {
	identifier string
	cursor     int
	done       bool
	cancelled  bool
}

func newModel(identifier string) model {
	return model{identifier: identifier}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyEnter:
		m.done = true
		return m, tea.Quit
	case tea.KeyUp, tea.KeyLeft, tea.KeyShiftTab:
		m.cursor = (m.cursor + len(choices) - 1) % len(choices)
		return m, nil
	case tea.KeyDown, tea.KeyRight, tea.KeyTab:
		m.cursor = (m.cursor + 1) % len(choices)
		return m, nil
	case tea.KeyRunes:
		for i, c := range choices {
			if key.String() == c.key {
				m.cursor = i
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", questionStyle.Render("Overwrite installed package"), pathStyle.Render(m.identifier+"?"))
	for i, c := range choices {
		label := fmt.Sprintf("[%s] %s", c.key, c.label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + label))
		} else {
			b.WriteString(optionStyle.Render("  " + label))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m model) choice() Choice {
	return choices[m.cursor].choice
}

// Decider returns a promoter.Decider asking on out and reading keys from in.
func Decider(in io.Reader, out io.Writer) promoter.Decider {
	return func(identifier string) (bool, promoter.Policy, error) {
		p := tea.NewProgram(newModel(identifier), tea.WithInput(in), tea.WithOutput(out))
		result, err := p.Run()
		if err != nil {
			return false, promoter.Ask, fmt.Errorf("prompt: %w", err)
		}
		final, ok := result.(model)
		if !ok || !final.done {
			return false, promoter.Ask, promoter.ErrDecisionCancelled
		}
		overwrite, sticky := final.choice().Decision()
		return overwrite, sticky, nil
	}
}
