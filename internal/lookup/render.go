package lookup

import (
	"html"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// NA marks a vehicle or Instagram field the API did not provide.
	NA = "NA"
	// Unavailable marks a number-lookup field whose source failed or was empty.
	Unavailable = "N/A"

	// keeps the photo caption under Telegram's 1024 character limit
	maxBioRunes = 300
)

// Result is a rendered lookup reply. When PhotoURL is set, Text is the photo caption.
type Result struct {
	Text     string
	PhotoURL string
}

// field returns the first non-empty value among paths, or fallback.
func field(doc gjson.Result, fallback string, paths ...string) string {
	for _, p := range paths {
		v := doc.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return fallback
}

func flag(doc gjson.Result, path string) string {
	if doc.Get(path).Bool() {
		return "✅"
	}
	return "❌"
}

type line struct {
	label string
	value string
}

func renderLines(title string, lines []line, footer string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("<b>")
		b.WriteString(title)
		b.WriteString("</b>\n\n")
	}
	for _, l := range lines {
		b.WriteString("<b>")
		b.WriteString(l.label)
		b.WriteString(":</b> <code>")
		b.WriteString(escape(l.value))
		b.WriteString("</code>\n")
	}
	if footer != "" {
		b.WriteString(footer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func escape(s string) string {
	return html.EscapeString(s)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
