package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/terse/internal/config"
	"github.com/vango-dev/terse/internal/watch"
)

const counterJSON = `{"s": {"n": 5}, "r": {"t": "row", "c": ["$n", {"t": "btn", "c": "+", "p": {"click": ["n", "+"]}}]}}`

const counterYAML = `s:
  n: 5
r:
  t: row
  c:
    - $n
    - t: btn
      c: "+"
      p:
        click: [n, "+"]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"counter.json", "counter.yaml"} {
		content := counterJSON
		if strings.HasSuffix(name, ".yaml") {
			content = counterYAML
		}
		path := writeFile(t, dir, name, content)
		t.Run(name, func(t *testing.T) {
			out, err := run(t, "render", path)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range []string{"<!DOCTYPE html>", "<title>counter</title>", "<span>5</span>", `<button type="button">+</button>`} {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRenderStreamMatchesDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.json", counterJSON)
	doc, err := run(t, "render", path)
	if err != nil {
		t.Fatal(err)
	}
	streamed, err := run(t, "render", "--stream", path)
	if err != nil {
		t.Fatal(err)
	}
	if doc != streamed {
		t.Errorf("stream differs from document:\n%s\n---\n%s", doc, streamed)
	}
}

func TestRenderToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "counter.json", counterJSON)
	out := filepath.Join(dir, "out.html")
	if _, err := run(t, "render", "--out", out, "--title", "Count", path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "<title>Count</title>") {
		t.Errorf("file output:\n%s", b)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", counterJSON)
	bad := writeFile(t, dir, "bad.json", `{"r": {"t": "blink"}}`)
	undeclared := writeFile(t, dir, "undeclared.json", `{"r": {"t": "txt", "c": "$missing"}}`)

	out, err := run(t, "validate", good)
	if err != nil || !strings.Contains(out, "ok   "+good) {
		t.Fatalf("validate good = %q, %v", out, err)
	}

	out, err = run(t, "validate", good, bad, undeclared)
	if err == nil || err.Error() != "2 of 3 files invalid" {
		t.Errorf("err = %v", err)
	}
	for _, want := range []string{"E102", "E101"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil || strings.TrimSpace(out) != version {
		t.Errorf("version = %q, %v", out, err)
	}
}

func TestBadConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "terse.yaml", "log:\n  format: xml\n")
	path := writeFile(t, t.TempDir(), "counter.json", counterJSON)
	_, err := run(t, "--config", cfg, "render", path)
	if err == nil || !strings.Contains(describe(err), "E110") {
		t.Errorf("err = %v", err)
	}
}

func TestPageSetServesAndReloads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.json", counterJSON)
	writeFile(t, dir, "notes.txt", "ignored")
	pages, err := loadPages(dir, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(pages.names()) != 1 {
		t.Fatalf("pages = %v", pages.names())
	}

	a := &app{cfg: config.Default(), logger: slog.Default()}
	h := a.newServer(pages).Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}
	if rec := get("/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<span>5</span>") {
		t.Errorf("/ = %d %s", rec.Code, rec.Body.String())
	}
	if rec := get("/about"); rec.Code != http.StatusNotFound {
		t.Errorf("/about = %d", rec.Code)
	}

	about := writeFile(t, dir, "about.yaml", "r: {t: h1, c: About}\n")
	broken := writeFile(t, dir, "index.json", `{"r": {"t": "blink"}}`)
	pages.apply([]watch.Change{{Path: about, Op: watch.Created}, {Path: broken, Op: watch.Modified}})

	if rec := get("/about"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "About") {
		t.Errorf("/about after reload = %d", rec.Code)
	}
	if rec := get("/"); !strings.Contains(rec.Body.String(), "<span>5</span>") {
		t.Error("broken reload replaced the last good page")
	}

	os.Remove(about)
	pages.apply([]watch.Change{{Path: about, Op: watch.Removed}})
	if _, ok := pages.lookup("about"); ok {
		t.Error("removed page still served")
	}
}
