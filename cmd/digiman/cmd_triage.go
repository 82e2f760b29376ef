package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"digiman/pkg/todo"
)

// newTriageCmd creates the "digiman triage" subcommand: an interactive
// pass over pending suggestions, one keypress per decision.
func newTriageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triage",
		Short: "Review pending suggestions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions, err := a.store.Suggestions(cmd.Context())
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No suggestions to triage.")
				return nil
			}

			m := newTriageModel(a.store, suggestions)
			final, err := tea.NewProgram(m).Run()
			if err != nil {
				return err
			}
			if tm, ok := final.(triageModel); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted %d, discarded %d, %d left.\n",
					tm.accepted, tm.discarded, len(tm.items))
			}
			return nil
		},
	}
}

// decidedMsg reports the result of an accept/discard against the store.
type decidedMsg struct {
	index    int
	accepted bool
	err      error
}

type triageModel struct {
	store *todo.Store
	items []todo.Item

	cursor    int
	accepted  int
	discarded int
	busy      bool
	errText   string
}

func newTriageModel(store *todo.Store, items []todo.Item) triageModel {
	return triageModel{store: store, items: items}
}

func (m triageModel) Init() tea.Cmd { return nil }

func (m triageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case decidedMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		if msg.accepted {
			m.accepted++
		} else {
			m.discarded++
		}
		m.items = append(m.items[:msg.index], m.items[msg.index+1:]...)
		if m.cursor >= len(m.items) && m.cursor > 0 {
			m.cursor--
		}
		if len(m.items) == 0 {
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "t":
			return m.decide(todo.Timeline{Type: todo.TimelineDate, Value: time.Now().Format("2006-01-02")})
		case "w":
			return m.decide(todo.Timeline{Type: todo.TimelineWeek, Value: todo.ISOWeek(time.Now())})
		case "m":
			return m.decide(todo.Timeline{Type: todo.TimelineMonth, Value: time.Now().Format("2006-01")})
		case "b":
			return m.decide(todo.Timeline{Type: todo.TimelineBacklog})
		case "d", "x":
			m.busy = true
			m.errText = ""
			return m, discardCmd(m.store, m.items[m.cursor].ID, m.cursor)
		}
	}
	return m, nil
}

func (m triageModel) decide(tl todo.Timeline) (tea.Model, tea.Cmd) {
	m.busy = true
	m.errText = ""
	return m, acceptCmd(m.store, m.items[m.cursor].ID, m.cursor, tl)
}

func acceptCmd(store *todo.Store, id string, index int, tl todo.Timeline) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Accept(context.Background(), id, tl)
		return decidedMsg{index: index, accepted: true, err: err}
	}
}

func discardCmd(store *todo.Store, id string, index int) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Discard(context.Background(), id)
		return decidedMsg{index: index, err: err}
	}
}

var (
	triageTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	triageCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	triageMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	triageErrStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	triageSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
)

func (m triageModel) View() string {
	var b strings.Builder
	b.WriteString(triageTitleStyle.Render(fmt.Sprintf("Triage (%d left)", len(m.items))))
	b.WriteString("\n\n")

	for i, item := range m.items {
		line := item.Title
		meta := fmt.Sprintf("%s %.0f%%", item.SourceType, item.Confidence*100)
		if i == m.cursor {
			b.WriteString(triageCursorStyle.Render("> "))
			b.WriteString(triageSelectedStyle.Render(line))
		} else {
			b.WriteString("  ")
			b.WriteString(line)
		}
		b.WriteString(" ")
		b.WriteString(triageMutedStyle.Render("(" + meta + ")"))
		b.WriteString("\n")
		if i == m.cursor && item.Description != "" {
			b.WriteString(triageMutedStyle.Render("    " + item.Description))
			b.WriteString("\n")
		}
	}

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(triageErrStyle.Render(m.errText))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(triageMutedStyle.Render("t today  w this week  m this month  b backlog  d discard  q quit"))
	b.WriteString("\n")
	return b.String()
}
