package render

import (
	"strings"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, text, attr string
	}{
		{"", "", ""},
		{"Hello, World!", "Hello, World!", "Hello, World!"},
		{"Tom & Jerry", "Tom &amp; Jerry", "Tom &amp; Jerry"},
		{"<script>alert('x')</script>", "&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;", "&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;"},
		{`say "hi"`, "say &quot;hi&quot;", "say &quot;hi&quot;"},
		{"a\n\tb\r", "a\n\tb\r", "a&#10;&#9;b&#13;"},
		{"日本語 ✓", "日本語 ✓", "日本語 ✓"},
	}
	for _, tt := range tests {
		if got := escapeHTML(tt.in); got != tt.text {
			t.Errorf("escapeHTML(%q) = %q, want %q", tt.in, got, tt.text)
		}
		if got := escapeAttr(tt.in); got != tt.attr {
			t.Errorf("escapeAttr(%q) = %q, want %q", tt.in, got, tt.attr)
		}
	}
}

type failWriter struct{ n int }

func (f *failWriter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errWrite
	}
	f.n--
	return len(p), nil
}

var errWrite = &writeError{}

type writeError struct{}

func (*writeError) Error() string { return "write failed" }

func TestHTMLWriterKeepsFirstError(t *testing.T) {
	hw := &htmlWriter{w: &failWriter{n: 1}}
	hw.str("<p")
	hw.attr("id", "x")
	hw.str(">")
	if hw.err != errWrite {
		t.Errorf("err = %v", hw.err)
	}

	var b strings.Builder
	hw = &htmlWriter{w: &b}
	hw.attr("disabled", "")
	hw.attr("title", `a"b`)
	if got := b.String(); got != ` disabled title="a&quot;b"` {
		t.Errorf("attrs = %q", got)
	}
}
