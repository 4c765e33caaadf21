package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/adapter"
)

// Serve routes req through r and converts the handler result.
func Serve(ctx context.Context, r *Router, req adapter.Request) adapter.Response {
	n, params := r.lookup(req.Path)
	h := r.notFound
	if n != nil {
		h = n.handler
	} else if h == nil {
		return adapter.Text(http.StatusNotFound, "404 page not found\n")
	} else {
		params = Params{}
	}
	c := &Context{Request: req, Params: params, Ctx: ctx}
	return r.respond(ctx, c, compose(h, r.middleware)(c))
}

func (r *Router) respond(ctx context.Context, c *Context, res Result) adapter.Response {
	switch res := res.(type) {
	case Page:
		page := res.Page
		h := http.Header{}
		h.Set("Content-Type", "text/html; charset=utf-8")
		return adapter.Response{
			Status:  http.StatusOK,
			Headers: h,
			Stream: func(w io.Writer) error {
				return r.stream(ctx, &page, w)
			},
		}
	case Data:
		body, err := json.Marshal(res.Value)
		if err != nil {
			return r.failure(c, http.StatusInternalServerError, err)
		}
		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		return adapter.Response{Status: status, Headers: h, Body: append(body, '\n')}
	case Redirect:
		code := res.Code
		if code == 0 {
			code = http.StatusFound
		}
		if err := checkRedirect(res.URL, code); err != nil {
			return r.failure(c, http.StatusInternalServerError, err)
		}
		h := http.Header{}
		h.Set("Location", res.URL)
		return adapter.Response{Status: code, Headers: h}
	case Error:
		status := res.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return r.failure(c, status, res.Err)
	case nil:
		return r.failure(c, http.StatusInternalServerError, errors.New("E201").WithDetail("handler returned no result"))
	default:
		return r.failure(c, http.StatusInternalServerError, errors.Newf("E201", "unknown result %T", res))
	}
}

func checkRedirect(url string, code int) error {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return errors.Newf("E108", "redirect status %d", code)
	}
	if url == "" {
		return errors.New("E108").WithDetail("redirect has no URL")
	}
	return nil
}

// failure builds an error response. Client errors carry the message;
// server errors only the status text.
func (r *Router) failure(c *Context, status int, err error) adapter.Response {
	body := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		body += ": " + err.Error()
	}
	resp := adapter.Text(status, body+"\n")
	if code := errors.CodeOf(err); code != "" {
		resp.Headers.Set("X-Terse-Error", code)
	}
	if status >= http.StatusInternalServerError {
		r.logger.Error("handler failed", "path", c.Request.Path, "status", status, "code", errors.CodeOf(err), "error", err)
	}
	return resp
}
