package status //nolint:testpackage // white-box

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func testFile(t *testing.T) *File {
	t.Helper()
	f := NewFile(filepath.Join(t.TempDir(), "cron_status.json"))
	f.Now = func() time.Time { return time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC) }
	return f
}

func TestFile_RecordSync(t *testing.T) {
	f := testFile(t)

	if err := f.RecordSync("sync", "success", 3, ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc := string(data)
	if got := gjson.Get(doc, "last_sync_status").String(); got != "success" {
		t.Errorf("last_sync_status = %q", got)
	}
	if got := gjson.Get(doc, "last_sync_count").Int(); got != 3 {
		t.Errorf("last_sync_count = %d", got)
	}
	if got := gjson.Get(doc, "history.#").Int(); got != 1 {
		t.Errorf("history length = %d", got)
	}
	if got := gjson.Get(doc, "history.0.source").String(); got != "sync" {
		t.Errorf("history source = %q", got)
	}
}

func TestFile_HistoryPrependsAndTrims(t *testing.T) {
	f := testFile(t)

	for i := 0; i < historyCap+5; i++ {
		outcome := "success"
		if i == historyCap+4 {
			outcome = "error"
		}
		if err := f.RecordSync("sync", outcome, i, ""); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc := string(data)
	if got := gjson.Get(doc, "history.#").Int(); got != historyCap {
		t.Errorf("history length = %d, want capped at %d", got, historyCap)
	}
	// Newest entry first.
	if got := gjson.Get(doc, "history.0.status").String(); got != "error" {
		t.Errorf("history.0.status = %q, want the latest record", got)
	}
}

func TestFile_PreservesForeignFields(t *testing.T) {
	f := testFile(t)
	seed := `{"menu_bar_version":"1.2.0","last_sync":"old"}`
	if err := os.WriteFile(f.Path, []byte(seed), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.RecordSync("watchdog", "error", 0, "probe failed"); err != nil {
		t.Fatalf("record: %v", err)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc := string(data)
	if got := gjson.Get(doc, "menu_bar_version").String(); got != "1.2.0" {
		t.Errorf("foreign field lost: %q", got)
	}
	if got := gjson.Get(doc, "last_sync").String(); got == "old" {
		t.Error("last_sync not updated")
	}
	if got := gjson.Get(doc, "history.0.error").String(); got != "probe failed" {
		t.Errorf("history error = %q", got)
	}
}

func TestFile_UnreadableFileTreatedAsEmpty(t *testing.T) {
	// A directory at the status path makes every read fail.
	f := NewFile(t.TempDir())
	if got := f.read(); got != "{}" {
		t.Fatalf("read = %q, want empty object", got)
	}
}

func TestFile_CorruptFileReplaced(t *testing.T) {
	f := testFile(t)
	if err := os.WriteFile(f.Path, []byte("not json{{{"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.RecordSync("sync", "success", 1, ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("file still corrupt: %v", err)
	}
}
