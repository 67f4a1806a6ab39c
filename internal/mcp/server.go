// Package mcp serves one indexed workspace to MCP clients. It owns the
// server lifecycle, the tool registry and the stdio, pipe and SSE
// transports. Sessions are independent: each negotiates its own
// initialize handshake and runs its tool calls one at a time.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/wsmcp/internal/analysis"
	"github.com/standardbeagle/wsmcp/internal/config"
	"github.com/standardbeagle/wsmcp/internal/debug"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/indexing"
	"github.com/standardbeagle/wsmcp/internal/notify"
	"github.com/standardbeagle/wsmcp/internal/refactor"
	"github.com/standardbeagle/wsmcp/internal/types"
	"github.com/standardbeagle/wsmcp/internal/version"
)

// State is the server lifecycle position. It only moves forward.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting down"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

const (
	methodInitialize = "initialize"
	methodToolsList  = "tools/list"
	methodToolsCall  = "tools/call"
)

type Server struct {
	cfg      *config.Config
	holder   *indexing.Holder
	notifier *notify.Notifier
	refactor *refactor.Service
	regex    *analysis.RegexCache
	server   *mcp.Server
	sessions *sessionRegistry

	state    atomic.Int32
	gate     sync.RWMutex // orders inflight.Add against the move to ShuttingDown
	inflight sync.WaitGroup

	shutdownOnce sync.Once
	closed       chan struct{}

	mu          sync.Mutex
	listeners   []net.Listener
	httpServers []*http.Server
}

// NewServer wires the services around holder. The server starts
// Uninitialized; Init builds the index and makes it Ready. notifier may be
// nil.
func NewServer(cfg *config.Config, holder *indexing.Holder, notifier *notify.Notifier) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:      cfg,
		holder:   holder,
		notifier: notifier,
		refactor: refactor.NewService(holder, cfg.Refactor.BackupDir),
		regex:    analysis.NewRegexCache(analysis.DefaultRegexCacheSize),
		sessions: newSessionRegistry(),
		closed:   make(chan struct{}),
	}

	defs := s.toolDefs()
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    version.Name,
		Version: version.Version,
	}, &mcp.ServerOptions{
		Instructions: fmt.Sprintf("Code intelligence for workspace %q: %d tools for search, navigation and refactoring. Edits are not reflected in queries until reindex is called. %s",
			holder.Workspace().Name, len(defs), toolErrorNote),
	})
	for _, d := range defs {
		d.tool.Description += " " + toolErrorNote
		s.server.AddTool(d.tool, s.handle(d.tool.Name, d.fn))
	}
	s.server.AddReceivingMiddleware(s.receive)
	return s
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Workspace is the name of the served workspace.
func (s *Server) Workspace() string {
	return s.holder.Workspace().Name
}

// Init runs the one-time startup index build. On failure the server stays
// Uninitialized and the error is an *errors.IndexError.
func (s *Server) Init(ctx context.Context) error {
	if st := s.State(); st != StateUninitialized {
		return fmt.Errorf("init: server is %s", st)
	}
	start := time.Now()
	ix, err := s.holder.Reindex(ctx)
	if err != nil {
		debug.LogMCP("initial index of %s failed: %v", s.Workspace(), err)
		return err
	}
	stats := ix.Stats()
	debug.LogMCP("indexed %s in %s: %d files, %d types, %d members, %d warnings",
		s.Workspace(), time.Since(start), stats.Files, stats.Types, stats.Members, len(stats.Warnings))
	s.state.CompareAndSwap(int32(StateUninitialized), int32(StateReady))
	return nil
}

// WorkspaceSwitched forwards a change of the active workspace to the
// notifier. The served workspace does not change.
func (s *Server) WorkspaceSwitched(name string) {
	debug.LogWorkspace("active workspace changed to %s", name)
	s.publish(types.ActivityEvent{Kind: types.ActivityWorkspaceSwitched, Detail: name})
}

func (s *Server) publish(ev types.ActivityEvent) {
	if ev.Workspace == "" {
		ev.Workspace = s.Workspace()
	}
	ev.Time = time.Now()
	s.notifier.Publish(ev)
}

// enter admits a tool call unless the server is past Ready.
func (s *Server) enter() bool {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.State() != StateReady {
		return false
	}
	s.inflight.Add(1)
	return true
}

// receive enforces the per-session handshake and lifecycle rules before a
// request reaches the SDK's handlers.
func (s *Server) receive(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		ss, _ := req.GetSession().(*mcp.ServerSession)

		switch method {
		case methodInitialize:
			if st := s.State(); st != StateReady {
				return nil, wserrors.NewProtocolError(method, "server is %s", st)
			}
			ts := s.sessions.lookup(ss)
			res, err := next(ctx, method, req)
			if err == nil {
				var params *mcp.InitializeParams
				if ir, ok := req.(*mcp.InitializeRequest); ok {
					params = ir.Params
				}
				ts.markInitialized(params)
				debug.LogMCP("session %s initialized by %q", ts.ID, ts.ClientName)
			}
			return res, err

		case methodToolsList:
			if ts := s.sessions.lookup(ss); !ts.Initialized() && ss != nil {
				return nil, wserrors.NewProtocolError(method, "received before initialize")
			}
			return next(ctx, method, req)

		case methodToolsCall:
			ts := s.sessions.lookup(ss)
			if !ts.Initialized() && ss != nil {
				return nil, wserrors.NewProtocolError(method, "received before initialize")
			}
			if !s.enter() {
				return nil, wserrors.NewProtocolError(method, "server is %s", s.State())
			}
			defer s.inflight.Done()

			ts.mu.Lock()
			defer ts.mu.Unlock()
			ts.countCall()
			return next(ctx, method, req)
		}
		return next(ctx, method, req)
	}
}

// Sessions lists the connected sessions.
func (s *Server) Sessions() []*ToolSession {
	return s.sessions.snapshot()
}

// ServeTransport serves one session over t until the peer disconnects or
// ctx ends. A peer hanging up is a normal end, not an error.
func (s *Server) ServeTransport(ctx context.Context, t mcp.Transport) error {
	if st := s.State(); st != StateReady {
		return fmt.Errorf("serve: server is %s", st)
	}
	ss, err := s.server.Connect(ctx, t, nil)
	if err != nil {
		return fmt.Errorf("failed to connect session: %w", err)
	}
	s.sessions.lookup(ss)

	done := make(chan error, 1)
	go func() { done <- ss.Wait() }()
	select {
	case err := <-done:
		debug.LogMCP("session ended: %v", err)
	case <-ctx.Done():
		_ = ss.Close()
		<-done
	}
	return nil
}

// ServeStdio serves the process's standard input and output. It returns
// when stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.ServeTransport(ctx, &mcp.StdioTransport{})
}

// ServePipe accepts local socket connections at path, one session per
// connection, until ctx ends or Shutdown is called.
func (s *Server) ServePipe(ctx context.Context, path string) error {
	if st := s.State(); st != StateReady {
		return fmt.Errorf("serve: server is %s", st)
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	_ = os.Chmod(path, 0600)
	defer os.Remove(path)

	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	debug.LogMCP("serving %s on %s", s.Workspace(), path)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if s.State() != StateReady {
			_ = conn.Close()
			continue
		}
		ss, err := s.server.Connect(ctx, &mcp.IOTransport{Reader: conn, Writer: conn}, nil)
		if err != nil {
			debug.LogMCP("pipe session failed: %v", err)
			_ = conn.Close()
			continue
		}
		s.sessions.lookup(ss)
	}
}

// SSEHandler returns the HTTP handler of the SSE transport: GET opens an
// event stream and POST delivers client messages for that session. New
// streams are refused once the server leaves Ready.
func (s *Server) SSEHandler() http.Handler {
	sse := mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && s.State() != StateReady {
			http.Error(w, "server is "+s.State().String(), http.StatusServiceUnavailable)
			return
		}
		sse.ServeHTTP(w, r)
	})
}

// ServeSSE listens on addr until ctx ends or Shutdown is called.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	if st := s.State(); st != StateReady {
		return fmt.Errorf("serve: server is %s", st)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SSEHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServers = append(s.httpServers, srv)
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = srv.Close() })
	defer stop()

	debug.LogMCP("serving %s over SSE on %s", s.Workspace(), addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown refuses new sessions and calls, waits for in-flight calls until
// ctx ends, then closes every session and listener. It is safe to call more
// than once; later calls wait for the first to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		defer close(s.closed)

		s.gate.Lock()
		s.state.Store(int32(StateShuttingDown))
		s.gate.Unlock()
		debug.LogMCP("shutting down %s", s.Workspace())

		s.mu.Lock()
		listeners, servers := s.listeners, s.httpServers
		s.listeners, s.httpServers = nil, nil
		s.mu.Unlock()
		for _, ln := range listeners {
			_ = ln.Close()
		}

		drained := make(chan struct{})
		go func() {
			s.inflight.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			err = fmt.Errorf("in-flight calls did not finish: %w", ctx.Err())
		}

		s.sessions.closeAll()
		for _, srv := range servers {
			if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
				_ = srv.Close()
			}
		}
		s.state.Store(int32(StateClosed))
	})
	<-s.closed
	return err
}
