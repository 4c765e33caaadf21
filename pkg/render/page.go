package render

import (
	"context"

	"github.com/a-h/templ"

	"github.com/vango-dev/terse/pkg/ops"
	"github.com/vango-dev/terse/pkg/reactive"
	"github.com/vango-dev/terse/pkg/spec"
	"github.com/vango-dev/terse/pkg/store"
)

// Loader supplies the content of a deferred island.
type Loader func(ctx context.Context) (spec.Node, error)

// Page is everything needed to render one document.
type Page struct {
	Title string

	// Lang defaults to the shell's language, then "en".
	Lang string

	// Head is rendered at the end of the document head.
	Head templ.Component

	Tree *spec.Tree

	// Store holds the page state. When nil, one is built from Tree.State.
	Store *store.Store

	// Deferred maps island ids to loaders. Those islands stream a
	// placeholder first and are filled when their loader returns.
	Deferred map[string]Loader

	// Callbacks are the callbacks boundary error handlers may name.
	Callbacks map[string]ops.Callback
}

// store returns the page store, creating it on first use.
func (p *Page) store() *store.Store {
	if p.Store == nil {
		var state map[string]any
		if p.Tree != nil {
			state = p.Tree.State
		}
		p.Store = store.New(reactive.NewRuntime(), state)
	}
	return p.Store
}
