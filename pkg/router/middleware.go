package router

// Middleware wraps a handler.
type Middleware func(next Handler) Handler

// compose applies mw so that mw[0] runs first.
func compose(h Handler, mw []Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// Chain combines middleware in order.
func Chain(mw ...Middleware) Middleware {
	return func(next Handler) Handler {
		return compose(next, mw)
	}
}

// Only applies mw when cond holds for the request.
func Only(cond func(*Context) bool, mw Middleware) Middleware {
	return func(next Handler) Handler {
		wrapped := mw(next)
		return func(c *Context) Result {
			if cond(c) {
				return wrapped(c)
			}
			return next(c)
		}
	}
}
