package render

import (
	"io"
	"strings"
)

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// escapeHTML escapes text content.
func escapeHTML(s string) string {
	return textEscaper.Replace(s)
}

// escapeAttr escapes an attribute value. Whitespace that could break
// attribute parsing is escaped too.
func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// htmlWriter keeps the first write error so rendering code can write
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) str(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.str(escapeHTML(s))
}

// attr writes name="value", or the bare name when value is empty.
func (h *htmlWriter) attr(name, value string) {
	if value == "" {
		h.str(" " + name)
		return
	}
	h.str(" " + name + `="` + escapeAttr(value) + `"`)
}
