package router

import (
	"context"

	"github.com/vango-dev/terse/pkg/adapter"
	"github.com/vango-dev/terse/pkg/render"
)

// Context is what a handler sees of a request.
type Context struct {
	Request adapter.Request
	Params  Params
	Ctx     context.Context
}

// Handler produces a result for a matched request.
type Handler func(*Context) Result

// Result is one of Page, Data, Redirect or Error.
type Result interface {
	result()
}

// Page renders a declarative page through the streaming shell.
type Page struct {
	Page render.Page
}

// Data is encoded as JSON. A zero Status means 200.
type Data struct {
	Status int
	Value  any
}

// Redirect sends the client elsewhere. A zero Code means 302.
type Redirect struct {
	URL  string
	Code int
}

// Error reports a failure with an HTTP status. A zero Status means 500.
type Error struct {
	Status int
	Err    error
}

func (Page) result()     {}
func (Data) result()     {}
func (Redirect) result() {}
func (Error) result()    {}
