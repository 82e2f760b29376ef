package source

import (
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"digiman/pkg/todo"
)

// Granola reads meeting notes from the local Granola cache file. The cache
// is JSON-in-JSON: the outer document has a "cache" field holding a second
// JSON string whose "state" carries documents and their summary panels.
type Granola struct {
	CachePath string
}

// NewGranola creates a Granola adapter for the given cache file.
func NewGranola(cachePath string) *Granola {
	return &Granola{CachePath: cachePath}
}

// Name implements Adapter.
func (g *Granola) Name() string { return "granola" }

// PullSince returns one raw item per meeting created after since. Deleted
// documents are skipped. The text payload is the meeting notes plus the
// summary panel, which is where action items usually live.
func (g *Granola) PullSince(_ context.Context, since time.Time) ([]RawItem, error) {
	data, err := os.ReadFile(g.CachePath)
	if err != nil {
		return nil, &UnavailableError{Source: g.Name(), Err: err}
	}

	state := gjson.Parse(gjson.GetBytes(data, "cache").String()).Get("state")
	if !state.Exists() {
		return nil, &UnavailableError{Source: g.Name(), Err: errMalformedCache}
	}

	panels := state.Get("documentPanels")

	var items []RawItem
	state.Get("documents").ForEach(func(docID, doc gjson.Result) bool {
		if doc.Get("deleted_at").Exists() && doc.Get("deleted_at").String() != "" {
			return true
		}
		createdAt, err := time.Parse(time.RFC3339, doc.Get("created_at").String())
		if err != nil || createdAt.Before(since) {
			return true
		}

		title := doc.Get("title").String()
		if title == "" {
			title = "Untitled Meeting"
		}

		var text strings.Builder
		text.WriteString(title)
		text.WriteString("\n\n")
		if notes := flattenTiptap(doc.Get("notes.content")); notes != "" {
			text.WriteString(notes)
			text.WriteString("\n")
		}
		if summary := summaryPanel(panels.Get(docID.String())); summary != "" {
			text.WriteString("\nSummary:\n")
			text.WriteString(summary)
		}

		items = append(items, RawItem{
			SourceType: todo.SourceGranola,
			SourceID:   docID.String(),
			Text:       strings.TrimSpace(text.String()),
			Context:    title,
		})
		return true
	})

	return items, nil
}

var errMalformedCache = malformedCacheError{}

type malformedCacheError struct{}

func (malformedCacheError) Error() string { return "cache has no state object" }

// summaryPanel finds the panel titled "Summary" and flattens its content,
// which Granola stores either as an HTML string or as a TipTap document.
func summaryPanel(docPanels gjson.Result) string {
	var summary string
	docPanels.ForEach(func(_, panel gjson.Result) bool {
		if panel.Get("title").String() != "Summary" {
			return true
		}
		content := panel.Get("content")
		if content.Type == gjson.String {
			summary = htmlToText(content.String())
		} else {
			summary = flattenTiptap(content.Get("content"))
		}
		return false
	})
	return strings.TrimSpace(summary)
}

// flattenTiptap walks a TipTap/ProseMirror content array and returns its
// plain text, rendering list items as dashed lines.
func flattenTiptap(content gjson.Result) string {
	var sb strings.Builder
	walkTiptap(content, &sb)
	return strings.TrimSpace(sb.String())
}

func walkTiptap(node gjson.Result, sb *strings.Builder) {
	if node.IsArray() {
		node.ForEach(func(_, child gjson.Result) bool {
			walkTiptap(child, sb)
			return true
		})
		return
	}

	switch node.Get("type").String() {
	case "text":
		sb.WriteString(node.Get("text").String())
	case "heading":
		sb.WriteString("\n")
		walkTiptap(node.Get("content"), sb)
		sb.WriteString("\n")
	case "paragraph":
		walkTiptap(node.Get("content"), sb)
		sb.WriteString("\n")
	case "listItem":
		sb.WriteString("- ")
		walkTiptap(node.Get("content"), sb)
	default:
		if inner := node.Get("content"); inner.Exists() {
			walkTiptap(inner, sb)
		}
	}
}

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	htmlListRe  = regexp.MustCompile(`<li[^>]*>`)
	htmlBlockRe = regexp.MustCompile(`</(p|h1|h2|h3|h4|li|ul|ol)>`)
)

// htmlToText strips tags from summary HTML, keeping list structure readable.
func htmlToText(html string) string {
	s := htmlListRe.ReplaceAllString(html, "\n- ")
	s = htmlBlockRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.TrimSpace(s)
}
