// Package adapter normalizes transport requests and responses so that
// routing and rendering never see a concrete HTTP type.
package adapter

import (
	"io"
	"net/http"
	"net/url"
)

// Request is a transport-neutral inbound request.
type Request struct {
	Method  string
	URL     string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// Response is a transport-neutral outbound response. When Stream is set it
// is written after the headers and Body is ignored.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
	Stream  func(w io.Writer) error
}

// Streaming reports whether the response body is produced incrementally.
func (r Response) Streaming() bool {
	return r.Stream != nil
}

// Text builds a plain-text response.
func Text(status int, body string) Response {
	h := http.Header{}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return Response{Status: status, Headers: h, Body: []byte(body)}
}
