// Package transport implements the HTTP(S) surface shared by the Brain
// and every Container (spec §4.1, C1): request routing, body parsing, and
// the common JSON response envelope.
//
// Routing is built on gorilla/mux (as the teacher's governance.AlfredServer
// does); body parsing and the envelope shape follow the original protocol
// in spec §4.1/§6.1 exactly rather than net/http's idiomatic defaults, so
// that a Python-side peer using the original wire format still interops.
package transport

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Envelope is the response shape every JSON endpoint returns (spec §4.1).
type Envelope struct {
	Error   bool `json:"error"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Context bundles everything a Handler needs: the parsed payload, a
// correlation ID, and a send-exactly-once response writer (spec §7
// "every handler MUST send exactly one response envelope per request").
type Context struct {
	Writer    http.ResponseWriter
	Request   *http.Request
	Payload   map[string]any
	RequestID string
	Path      string

	mu   sync.Mutex
	sent bool
}

// Handler processes one parsed request and must call exactly one Send* method.
type Handler func(*Context)

// SendJSON writes the standard envelope. Calling it more than once per
// Context is a programmer error and is silently ignored after the first
// call, which is the defensive analogue of spec §7's "exactly one envelope"
// rule (the original's bug of double-sending on some relay paths, see
// spec §9, must not be reproduced here).
func (c *Context) SendJSON(isError bool, message string, data any) {
	c.sendJSONStatus(isError, message, data, http.StatusOK)
}

// SendJSONStatus is SendJSON with an explicit HTTP status code, used for
// protocol errors (404) and internal errors (500) per spec §7.
func (c *Context) SendJSONStatus(isError bool, message string, data any, status int) {
	c.sendJSONStatus(isError, message, data, status)
}

func (c *Context) sendJSONStatus(isError bool, message string, data any, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return
	}
	c.sent = true

	body, err := json.Marshal(Envelope{Error: isError, Message: message, Data: data})
	if err != nil {
		body = []byte(`{"error":true,"message":"internal marshal error"}`)
		status = http.StatusInternalServerError
	}

	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	h.Set("Connection", "close")
	c.Writer.WriteHeader(status)
	c.Writer.Write(body)
}

// SendAsset writes a raw body with an explicit content type (webgui /
// favicon responses), per spec §4.1 "HTML/asset responses set the
// appropriate MIME type".
func (c *Context) SendAsset(status int, contentType string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return
	}
	c.sent = true

	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	h.Set("Connection", "close")
	c.Writer.WriteHeader(status)
	c.Writer.Write(body)
}

// ParseBody dispatches on Content-Type / method exactly as spec §4.1
// describes, returning a flat string-keyed payload map.
func ParseBody(r *http.Request) (map[string]any, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return parseQuery(r.URL.RawQuery)
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// No/garbled Content-Type: fall back to treating the body as JSON,
		// matching the original's permissive single-decoder behavior.
		mediaType = "application/json"
	}

	switch {
	case mediaType == "application/json":
		return parseJSON(r.Body)
	case mediaType == "application/x-www-form-urlencoded":
		return parseFormBody(r)
	case strings.HasPrefix(mediaType, "multipart/form-data"):
		return parseMultipart(r, params["boundary"])
	default:
		return parseJSON(r.Body)
	}
}

func parseJSON(body io.Reader) (map[string]any, error) {
	payload := map[string]any{}
	dec := json.NewDecoder(body)
	if err := dec.Decode(&payload); err != nil {
		if err == io.EOF {
			return payload, nil
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return payload, nil
}

func parseQuery(rawQuery string) (map[string]any, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid query string: %w", err)
	}
	return flatten(values), nil
}

func parseFormBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read form body: %w", err)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	return flatten(values), nil
}

func parseMultipart(r *http.Request, boundary string) (map[string]any, error) {
	if boundary == "" {
		return nil, fmt.Errorf("multipart body missing boundary")
	}
	reader := multipart.NewReader(r.Body, boundary)
	payload := map[string]any{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart part: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("read multipart value: %w", err)
		}
		payload[part.FormName()] = string(data)
	}
	return payload, nil
}

func flatten(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

// Router builds the path-prefix routing described in spec §4.1 on top of
// gorilla/mux: case-insensitive prefix matching, query strings stripped
// before dispatch.
type Router struct {
	mux *mux.Router
}

func NewRouter() *Router {
	r := mux.NewRouter()
	r.UseEncodedPath()
	return &Router{mux: r}
}

// Handle wraps h with body parsing, request-ID stamping, and panic
// recovery (an internal error per spec §7 becomes a 500 envelope rather
// than crashing the accept loop) and registers it under every method at
// the given path prefix.
func (rt *Router) Handle(prefix string, h Handler) {
	rt.mux.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return strings.HasPrefix(strings.ToLower(r.URL.Path), prefix)
	}).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()

		defer func() {
			if rec := recover(); rec != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Connection", "close")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, `{"error":true,"message":"internal error"}`)
			}
		}()

		payload, err := ParseBody(r)
		ctx := &Context{Writer: w, Request: r, RequestID: requestID, Path: strings.ToLower(r.URL.Path)}
		if err != nil {
			ctx.SendJSONStatus(true, err.Error(), nil, http.StatusNotFound)
			return
		}
		ctx.Payload = payload
		h(ctx)
	})
}

// HandleFile registers a handler for an exact path (used for /favicon.ico).
func (rt *Router) HandleFile(path string, h Handler) {
	rt.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		payload, _ := ParseBody(r)
		ctx := &Context{Writer: w, Request: r, Payload: payload, RequestID: uuid.NewString(), Path: strings.ToLower(r.URL.Path)}
		h(ctx)
	})
}

// NotFound installs the catch-all 404 handler (spec §4.1 "anything else -> 404").
func (rt *Router) NotFound(h Handler) {
	rt.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := ParseBody(r)
		ctx := &Context{Writer: w, Request: r, Payload: payload, RequestID: uuid.NewString(), Path: strings.ToLower(r.URL.Path)}
		h(ctx)
	})
}

// ServeHTTP makes Router an http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// TLSConfigFrom builds a *tls.Config from a cert/key pair, or returns nil
// (plain HTTP) when either path is empty, per spec §4.1.
func TLSConfigFrom(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS keypair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
