// Package status maintains the cron_status.json file the menu-bar app and
// monitor dashboard poll. It is a write-only side channel: nothing in the
// pipeline reads it back.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// historyCap bounds the history array kept in the status file.
const historyCap = 50

// Entry is one line of the status history, newest first.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Count     int    `json:"count"`
	Source    string `json:"source"`
	Error     string `json:"error,omitempty"`
}

// File updates a status JSON document in place, preserving any fields other
// writers have added.
type File struct {
	Path string
	Now  func() time.Time
}

// NewFile creates a status file writer.
func NewFile(path string) *File {
	return &File{Path: path, Now: time.Now}
}

// RecordSync writes the outcome of one sync or watchdog pass: the last-sync
// summary fields plus a bounded history entry. A corrupt or missing file is
// replaced rather than propagated as an error.
func (f *File) RecordSync(source, outcome string, count int, errMsg string) error {
	doc := f.read()
	now := f.Now().Format(time.RFC3339)

	var err error
	for _, set := range []struct {
		path  string
		value any
	}{
		{"last_sync", now},
		{"last_sync_status", outcome},
		{"last_sync_count", count},
	} {
		doc, err = sjson.Set(doc, set.path, set.value)
		if err != nil {
			return fmt.Errorf("status set %s: %w", set.path, err)
		}
	}

	history := []Entry{{
		Timestamp: now,
		Status:    outcome,
		Count:     count,
		Source:    source,
		Error:     errMsg,
	}}
	if raw := gjson.Get(doc, "history"); raw.IsArray() {
		var prior []Entry
		if err := json.Unmarshal([]byte(raw.Raw), &prior); err == nil {
			history = append(history, prior...)
		}
	}
	if len(history) > historyCap {
		history = history[:historyCap]
	}
	histRaw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("status marshal history: %w", err)
	}
	doc, err = sjson.SetRaw(doc, "history", string(histRaw))
	if err != nil {
		return fmt.Errorf("status set history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o750); err != nil {
		return fmt.Errorf("status dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(doc), 0o600); err != nil {
		return fmt.Errorf("status write %s: %w", f.Path, err)
	}
	return nil
}

func (f *File) read() string {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "{}"
	}
	if !gjson.ValidBytes(data) {
		return "{}"
	}
	return string(data)
}
