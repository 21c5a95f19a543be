package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
)

// Server is the blocking-accept-loop HTTP(S) front door shared by the
// Brain and every Container (spec §4.1, C1; shutdown sequence §4.8, C8).
//
// Each accepted connection is served on its own goroutine by net/http's
// Serve loop, matching spec §5's "one task per accepted connection"
// scheduling model; Connection: close is set on every response so a peer
// never reuses the socket, matching the original's one-request-per-socket
// contract.
type Server struct {
	Hostname string
	Port     int
	CertFile string
	KeyFile  string

	router *Router

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	running  atomic.Bool
}

func NewServer(hostname string, port int, certFile, keyFile string, router *Router) *Server {
	return &Server{Hostname: hostname, Port: port, CertFile: certFile, KeyFile: keyFile, router: router}
}

// Start opens the listening socket (wrapped in TLS when configured) and
// runs the accept loop until Stop closes the listener. It blocks the
// calling goroutine — callers that want useThreads=true semantics (spec
// §4.2) should invoke Start in its own goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.Hostname, s.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	tlsCfg, err := TLSConfigFrom(s.CertFile, s.KeyFile)
	if err != nil {
		ln.Close()
		s.mu.Unlock()
		return err
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	s.listener = ln
	s.httpSrv = &http.Server{Handler: s.router}
	s.running.Store(true)
	s.mu.Unlock()

	err = s.httpSrv.Serve(ln)
	// A normal Stop() causes Serve to return ErrServerClosed or a "use of
	// closed network connection" error from the raw listener close; both
	// are expected termination, not failures (spec §4.8: "accept loop MUST
	// treat 'socket closed' as a normal termination").
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Stop is idempotent (spec §8 P5): closing an already-stopped Server is a
// no-op. It force-closes the listening socket then calls Shutdown, which
// is safe to call more than once.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)

	if s.listener != nil {
		s.listener.Close()
	}
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		_ = s.httpSrv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) IsRunning() bool { return s.running.Load() }

// URL returns this server's externally-addressable base URL for the
// configured scheme, host and port.
func (s *Server) URL() string {
	scheme := "http"
	if s.CertFile != "" && s.KeyFile != "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, s.Hostname, s.Port)
}
