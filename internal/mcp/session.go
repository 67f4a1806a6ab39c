package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/wsmcp/internal/debug"
)

// ToolSession is the server's record of one connected client. Calls on a
// session run one at a time; sessions share no mutable state.
type ToolSession struct {
	ID           string
	ClientName   string
	Capabilities *mcp.ClientCapabilities
	ConnectedAt  time.Time

	mu          sync.Mutex // held for the duration of each tools/call
	stateMu     sync.Mutex
	initialized bool
	calls       int
	session     *mcp.ServerSession
}

func (t *ToolSession) Initialized() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.initialized
}

// Calls returns how many tool calls the session has made.
func (t *ToolSession) Calls() int {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.calls
}

func (t *ToolSession) markInitialized(params *mcp.InitializeParams) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.initialized = true
	if params == nil {
		return
	}
	if params.ClientInfo != nil {
		t.ClientName = params.ClientInfo.Name
	}
	t.Capabilities = params.Capabilities
}

func (t *ToolSession) countCall() {
	t.stateMu.Lock()
	t.calls++
	t.stateMu.Unlock()
}

// sessionRegistry tracks live sessions. A record is created the first time
// a session sends a request and removed once its connection ends.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[*mcp.ServerSession]*ToolSession
	closed   bool
	wg       sync.WaitGroup
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[*mcp.ServerSession]*ToolSession)}
}

// lookup returns the record for ss, creating it on first sight. A nil
// session, or one first seen after closeAll, gets a detached record that is
// never stored.
func (r *sessionRegistry) lookup(ss *mcp.ServerSession) *ToolSession {
	if ss == nil {
		return &ToolSession{ID: uuid.NewString(), ConnectedAt: time.Now()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ts, ok := r.sessions[ss]; ok {
		return ts
	}
	if r.closed {
		return &ToolSession{ID: uuid.NewString(), ConnectedAt: time.Now()}
	}
	ts := &ToolSession{ID: uuid.NewString(), ConnectedAt: time.Now(), session: ss}
	r.sessions[ss] = ts
	debug.LogMCP("session %s connected", ts.ID)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = ss.Wait()
		r.remove(ss)
	}()
	return ts
}

func (r *sessionRegistry) remove(ss *mcp.ServerSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts, ok := r.sessions[ss]; ok {
		delete(r.sessions, ss)
		debug.LogMCP("session %s disconnected after %d calls", ts.ID, ts.Calls())
	}
}

func (r *sessionRegistry) snapshot() []*ToolSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ToolSession, 0, len(r.sessions))
	for _, ts := range r.sessions {
		out = append(out, ts)
	}
	return out
}

// closeAll ends every live session and waits for their records to go.
func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	for _, ts := range r.snapshot() {
		_ = ts.session.Close()
	}
	r.wg.Wait()
}
