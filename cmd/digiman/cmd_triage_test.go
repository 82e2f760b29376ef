package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"digiman/pkg/todo"
)

func testTriageModel() triageModel {
	return newTriageModel(nil, []todo.Item{
		{ID: "1", Title: "First", SourceType: todo.SourceSlack, Confidence: 0.9},
		{ID: "2", Title: "Second", SourceType: todo.SourceGranola, Confidence: 0.5},
	})
}

func TestTriageModel_CursorMovement(t *testing.T) {
	m := testTriageModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = next.(triageModel)
	if m.cursor != 1 {
		t.Errorf("cursor = %d after j", m.cursor)
	}

	// Cursor clamps at the bottom.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = next.(triageModel)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want clamped", m.cursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	m = next.(triageModel)
	if m.cursor != 0 {
		t.Errorf("cursor = %d after k", m.cursor)
	}
}

func TestTriageModel_DecisionRemovesItem(t *testing.T) {
	m := testTriageModel()

	next, _ := m.Update(decidedMsg{index: 0, accepted: true})
	m = next.(triageModel)
	if len(m.items) != 1 || m.items[0].ID != "2" {
		t.Errorf("items = %+v", m.items)
	}
	if m.accepted != 1 || m.discarded != 0 {
		t.Errorf("counts = %d/%d", m.accepted, m.discarded)
	}

	// Last decision quits the program.
	next, cmd := m.Update(decidedMsg{index: 0, accepted: false})
	m = next.(triageModel)
	if len(m.items) != 0 {
		t.Errorf("items = %+v", m.items)
	}
	if cmd == nil {
		t.Fatal("expected quit command after last item")
	}
}

func TestTriageModel_ErrorKeepsItem(t *testing.T) {
	m := testTriageModel()
	m.busy = true

	next, _ := m.Update(decidedMsg{index: 0, err: errStub("conflict")})
	m = next.(triageModel)
	if len(m.items) != 2 {
		t.Errorf("items = %+v, want untouched on error", m.items)
	}
	if m.errText == "" || m.busy {
		t.Errorf("errText=%q busy=%v", m.errText, m.busy)
	}
}

func TestTriageModel_View(t *testing.T) {
	m := testTriageModel()
	view := m.View()
	for _, want := range []string{"Triage (2 left)", "First", "Second", "90%", "discard"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

type errStub string

func (e errStub) Error() string { return string(e) }
