package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Call is one request received by FakeAPI.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// Int returns a numeric body field as int.
func (c Call) Int(field string) int {
	if f, ok := c.Body[field].(float64); ok {
		return int(f)
	}
	return 0
}

// Response is a canned answer.
type Response struct {
	Status int
	Body   string
}

// Responder produces the answer for the n-th call (0-based) to a route.
type Responder func(n int, call Call) Response

// Reply always answers with status and body.
func Reply(status int, body string) Responder {
	return func(int, Call) Response {
		return Response{Status: status, Body: body}
	}
}

// Replies answers the n-th call with responses[n], repeating the last one.
func Replies(responses ...Response) Responder {
	return func(n int, _ Call) Response {
		if n >= len(responses) {
			n = len(responses) - 1
		}
		return responses[n]
	}
}

// FakeAPI is an httptest server standing in for the rover's remote API.
// Unrouted POSTs answer {"ok":true}; unrouted GETs answer {"data":[]}.
type FakeAPI struct {
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]Responder
	calls  []Call
}

// NewFakeAPI starts a fake API closed on test cleanup.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{routes: make(map[string]Responder)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// Handle routes method+path to r.
func (f *FakeAPI) Handle(method, path string, r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = r
}

// Calls returns the calls received on path, in arrival order.
func (f *FakeAPI) Calls(path string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// AllCalls returns every call received.
func (f *FakeAPI) AllCalls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &call.Body)
	}

	f.mu.Lock()
	n := 0
	for _, c := range f.calls {
		if c.Method == call.Method && c.Path == call.Path {
			n++
		}
	}
	f.calls = append(f.calls, call)
	responder := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	resp := Response{Status: http.StatusOK, Body: `{"ok":true}`}
	if r.Method == http.MethodGet {
		resp.Body = `{"data":[]}`
	}
	if responder != nil {
		resp = responder(n, call)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}
