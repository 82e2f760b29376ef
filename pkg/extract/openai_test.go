package extract //nolint:testpackage // white-box

import (
	"testing"
)

func TestParseCandidates(t *testing.T) {
	reply := `{"action_items":[
		{"title":"Send deck to finance","description":"Due Friday, Maya is waiting.","confidence":0.95},
		{"title":"  Schedule offsite  ","confidence":0.7},
		{"title":"","description":"no title, dropped"}
	]}`

	got := ParseCandidates(reply)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Title != "Send deck to finance" || got[0].Confidence != 0.95 {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].Description != "Due Friday, Maya is waiting." {
		t.Errorf("description = %q", got[0].Description)
	}
	if got[1].Title != "Schedule offsite" {
		t.Errorf("title not trimmed: %q", got[1].Title)
	}
}

func TestParseCandidates_CodeFence(t *testing.T) {
	reply := "```json\n{\"action_items\":[{\"title\":\"Fix the login flow\",\"confidence\":0.9}]}\n```"

	got := ParseCandidates(reply)
	if len(got) != 1 || got[0].Title != "Fix the login flow" {
		t.Fatalf("got = %+v", got)
	}
}

func TestParseCandidates_EmptyAndGarbage(t *testing.T) {
	if got := ParseCandidates(`{"action_items":[]}`); len(got) != 0 {
		t.Errorf("empty array: %+v", got)
	}
	if got := ParseCandidates("the model rambled instead of returning JSON"); len(got) != 0 {
		t.Errorf("garbage: %+v", got)
	}
	if got := ParseCandidates(""); len(got) != 0 {
		t.Errorf("empty reply: %+v", got)
	}
}

func TestOpenAI_AvailableWithoutKey(t *testing.T) {
	o := NewOpenAI("", "")
	if o.Available(t.Context()) {
		t.Error("no API key must mean unavailable, without a network call")
	}
}
