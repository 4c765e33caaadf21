package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/hydrate"
	"github.com/vango-dev/terse/pkg/serial"
	"github.com/vango-dev/terse/pkg/spec"
)

const documentEnd = "</body>\n</html>\n"

// Config configures a Shell.
type Config struct {
	// Lang is the default document language.
	Lang   string
	Pretty bool
	Logger *slog.Logger
}

// Shell renders whole documents, streamed or at once.
type Shell struct {
	Config Config
}

// NewShell returns a shell with cfg.
func NewShell(cfg Config) *Shell {
	return &Shell{Config: cfg}
}

// RenderDocument renders page with a default shell.
func RenderDocument(ctx context.Context, page *Page) (string, error) {
	return NewShell(Config{}).RenderDocument(ctx, page)
}

func (s *Shell) logger() *slog.Logger {
	if s.Config.Logger != nil {
		return s.Config.Logger
	}
	return slog.Default()
}

func (s *Shell) renderer(page *Page) *Renderer {
	return &Renderer{
		Store:     page.store(),
		Callbacks: page.Callbacks,
		Logger:    s.logger(),
		Pretty:    s.Config.Pretty,
	}
}

// plan is what both render paths check before writing anything.
type plan struct {
	islands []hydrate.Island

	// top are the islands outside boundaries and iterations.
	top map[string]*spec.Island
}

func (s *Shell) plan(page *Page) (*plan, error) {
	if page.Tree == nil || page.Tree.Root == nil {
		return nil, errors.Newf("E201", "page has no tree")
	}
	islands, err := hydrate.Collect(page.Tree.Root)
	if err != nil {
		return nil, err
	}
	p := &plan{islands: islands, top: topIslands(page.Tree.Root)}
	for id := range page.Deferred {
		if p.top[id] == nil {
			return nil, errors.Newf("E107", "deferred island %q is not a top-level island of the page", id)
		}
	}
	return p, nil
}

// topIslands finds the islands the content can be split at.
func topIslands(root spec.Node) map[string]*spec.Island {
	out := make(map[string]*spec.Island)
	spec.Walk(root, func(n spec.Node) bool {
		switch x := n.(type) {
		case *spec.Island:
			out[x.ID] = x
			return false
		case *spec.Boundary, *spec.Each:
			return false
		}
		return true
	})
	return out
}

func (s *Shell) head(ctx context.Context, page *Page) (string, error) {
	lang := page.Lang
	if lang == "" {
		lang = s.Config.Lang
	}
	if lang == "" {
		lang = "en"
	}
	var b strings.Builder
	hw := &htmlWriter{w: &b}
	hw.str("<!DOCTYPE html>\n<html")
	hw.attr("lang", lang)
	hw.str(">\n<head>\n")
	hw.str(`<meta charset="utf-8">` + "\n")
	hw.str(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	if page.Title != "" {
		hw.str("<title>")
		hw.text(page.Title)
		hw.str("</title>\n")
	}
	if page.Head != nil {
		if err := page.Head.Render(ctx, &b); err != nil {
			return "", errors.New("E201").WithDetail("head component failed").Wrap(err)
		}
	}
	hw.str("</head>\n")
	return b.String(), nil
}

func bodyStart(deferred bool) string {
	if deferred {
		return "<body>\n<script>" + hydrate.FillRuntime + "</script>\n"
	}
	return "<body>\n"
}

// hydration returns the hydration script for the page's islands, with
// deferred islands carrying their loaded content. It is empty when the
// page has no islands. Deferred islands that were never placed, because
// they sit in an inactive branch, are left out.
func (s *Shell) hydration(page *Page, p *plan, loaded map[string]spec.Node, placed map[string]bool) (string, error) {
	islands := make([]hydrate.Island, 0, len(p.islands))
	for _, is := range p.islands {
		if _, ok := page.Deferred[is.ID]; ok && !placed[is.ID] {
			continue
		}
		if n, ok := loaded[is.ID]; ok {
			is.Node = n
		}
		islands = append(islands, is)
	}
	if len(islands) == 0 {
		return "", nil
	}
	snapshot, err := serial.Serialize(page.store())
	if err != nil {
		return "", err
	}
	return hydrate.GenerateScript(islands, snapshot)
}

// RenderDocument renders the whole page at once. Deferred islands are
// loaded first and rendered in place.
func (s *Shell) RenderDocument(ctx context.Context, page *Page) (string, error) {
	p, err := s.plan(page)
	if err != nil {
		return "", err
	}
	ls := s.startLoaders(ctx, page)
	defer ls.stop()

	loaded := make(map[string]spec.Node, len(page.Deferred))
	for range page.Deferred {
		select {
		case <-ctx.Done():
			return "", errors.New("E301").WithDetail("render cancelled").Wrap(ctx.Err())
		case res := <-ls.results:
			if res.err != nil {
				return "", res.err
			}
			loaded[res.id] = res.node
		}
	}

	head, err := s.head(ctx, page)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(bodyStart(false))

	r := s.renderer(page)
	placed := make(map[string]bool, len(page.Deferred))
	var w *walker
	w = r.walker(func(hw *htmlWriter, is *spec.Island, sc scope) error {
		child := is.Child
		if n, ok := loaded[is.ID]; ok {
			child = n
			placed[is.ID] = true
		}
		return w.islandHTML(hw, is, child, sc)
	})
	hw := &htmlWriter{w: &b}
	if err := w.node(hw, page.Tree.Root, scope{}); err != nil {
		return "", err
	}

	script, err := s.hydration(page, p, loaded, placed)
	if err != nil {
		return "", err
	}
	b.WriteString(script)
	b.WriteString(documentEnd)
	return b.String(), nil
}

// Stream writes page to sink chunk by chunk. Loaders run concurrently;
// rendering stays on the calling goroutine. On cancellation, a sink error,
// a loader error or a render error the stream stops, the loaders are
// cancelled and waited for, and an E301 error is returned.
func (s *Shell) Stream(ctx context.Context, page *Page, sink Sink) error {
	p, err := s.plan(page)
	if err != nil {
		return err
	}
	st := &stream{
		ctx:    ctx,
		sink:   sink,
		logger: s.logger().With("stream", ulid.Make().String()),
	}
	st.logger.Debug("stream start", "title", page.Title, "deferred", len(page.Deferred))

	ls := s.startLoaders(ctx, page)
	defer ls.stop()

	if err := st.run(s, page, p, ls); err != nil {
		st.logger.Debug("stream aborted", "chunks", st.chunks, "error", err)
		return abort(err)
	}
	st.logger.Debug("stream done", "chunks", st.chunks)
	return nil
}

type stream struct {
	ctx    context.Context
	sink   Sink
	logger *slog.Logger
	chunks int
}

func (st *stream) emit(kind ChunkKind, id, data string) error {
	if err := st.ctx.Err(); err != nil {
		return err
	}
	if err := st.sink.WriteChunk(Chunk{Kind: kind, ID: id, Data: data}); err != nil {
		return err
	}
	st.chunks++
	return nil
}

func (st *stream) run(s *Shell, page *Page, p *plan, ls *loaders) error {
	head, err := s.head(st.ctx, page)
	if err != nil {
		return err
	}
	if err := st.emit(ChunkHead, "", head); err != nil {
		return err
	}
	if err := st.emit(ChunkBodyStart, "", bodyStart(len(page.Deferred) > 0)); err != nil {
		return err
	}

	// Content is buffered and cut at every top-level island.
	var buf bytes.Buffer
	hw := &htmlWriter{w: &buf}
	flush := func(kind ChunkKind, id string) error {
		if buf.Len() == 0 && kind == ChunkContent && id == "" {
			return nil
		}
		data := buf.String()
		buf.Reset()
		return st.emit(kind, id, data)
	}
	r := s.renderer(page)
	placed := make(map[string]bool, len(page.Deferred))
	var w *walker
	w = r.walker(func(_ *htmlWriter, is *spec.Island, sc scope) error {
		if err := flush(ChunkContent, ""); err != nil {
			return err
		}
		if _, ok := page.Deferred[is.ID]; ok {
			placed[is.ID] = true
			hw.str(placeholder(is.ID))
			return flush(ChunkPlaceholder, is.ID)
		}
		if err := w.islandHTML(hw, is, is.Child, sc); err != nil {
			return err
		}
		return flush(ChunkContent, is.ID)
	})
	if err := w.node(hw, page.Tree.Root, scope{}); err != nil {
		return err
	}
	if err := flush(ChunkContent, ""); err != nil {
		return err
	}

	// Every placeholder gets exactly one fill; loaders of islands that
	// were not placed are cancelled and their results dropped.
	for id := range page.Deferred {
		if !placed[id] {
			ls.cancelOne(id)
		}
	}
	loaded := make(map[string]spec.Node, len(placed))
	fills := r.walker(nil)
	for len(loaded) < len(placed) {
		var res loadResult
		select {
		case <-st.ctx.Done():
			return st.ctx.Err()
		case res = <-ls.results:
		}
		if !placed[res.id] {
			continue
		}
		if res.err != nil {
			return res.err
		}
		buf.Reset()
		hw.str(`<template data-fill="` + escapeAttr(res.id) + `">`)
		if err := fills.islandHTML(hw, p.top[res.id], res.node, scope{}); err != nil {
			return errors.FromError(err, "E201").WithTag(res.id)
		}
		hw.str("</template>" + hydrate.FillCall(res.id))
		if err := flush(ChunkFill, res.id); err != nil {
			return err
		}
		loaded[res.id] = res.node
	}

	script, err := s.hydration(page, p, loaded, placed)
	if err != nil {
		return err
	}
	if script != "" {
		if err := st.emit(ChunkHydration, "", script); err != nil {
			return err
		}
	}
	return st.emit(ChunkEnd, "", documentEnd)
}

// abort turns any failure into a stream error.
func abort(err error) error {
	if errors.CodeOf(err) == "E301" {
		return err
	}
	return errors.New("E301").WithDetail("stream aborted").Wrap(err)
}

type loadResult struct {
	id   string
	node spec.Node
	err  error
}

type loaders struct {
	results chan loadResult
	cancel  context.CancelFunc
	each    map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// startLoaders runs every deferred loader on its own goroutine. Results
// arrive in completion order.
func (s *Shell) startLoaders(ctx context.Context, page *Page) *loaders {
	lctx, cancel := context.WithCancel(ctx)
	ls := &loaders{
		results: make(chan loadResult, len(page.Deferred)),
		cancel:  cancel,
		each:    make(map[string]context.CancelFunc, len(page.Deferred)),
	}

	ids := make([]string, 0, len(page.Deferred))
	for id := range page.Deferred {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	keys := make(map[string]any)
	for _, k := range page.store().Keys() {
		keys[k] = nil
	}
	for _, id := range ids {
		id := id
		load := page.Deferred[id]
		ictx, icancel := context.WithCancel(lctx)
		ls.each[id] = icancel
		ls.wg.Add(1)
		go func() {
			defer ls.wg.Done()
			defer icancel()
			ls.results <- runLoader(ictx, id, load, keys)
		}()
	}
	return ls
}

// cancelOne cancels the loader of island id.
func (ls *loaders) cancelOne(id string) {
	if cancel, ok := ls.each[id]; ok {
		cancel()
	}
}

// stop cancels the loaders still running and waits for them.
func (ls *loaders) stop() {
	ls.cancel()
	ls.wg.Wait()
}

func runLoader(ctx context.Context, id string, load Loader, keys map[string]any) (res loadResult) {
	res.id = id
	defer func() {
		if r := recover(); r != nil {
			res.node, res.err = nil, errors.Newf("E301", "loader panicked: %v", r).WithTag(id)
		}
	}()
	n, err := load(ctx)
	if err != nil {
		res.err = errors.New("E301").WithDetail(fmt.Sprintf("loader for island %q failed", id)).WithTag(id).Wrap(err)
		return res
	}
	if n, err = spec.ParseNode(n); err == nil {
		err = spec.CheckState(n, keys)
	}
	if err != nil {
		res.err = errors.FromError(err, "E109").WithTag(id)
		return res
	}
	res.node = n
	return res
}
