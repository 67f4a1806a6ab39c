package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/standardbeagle/wsmcp/internal/types"
)

const readTimeout = time.Second

// Message is one received line. Handshake lines carry only a workspace.
type Message struct {
	Raw       string
	Workspace string
	Event     string
	Kind      string
	Tool      string
	Detail    string
}

// ParseLine splits "<workspace>|<event>" and the event text
// "kind:tool[:detail]", "workspace-switched:name" or "disconnected".
func ParseLine(line string) Message {
	line = strings.TrimRight(line, "\r\n")
	msg := Message{Raw: line}
	ws, event, ok := strings.Cut(line, "|")
	if !ok {
		msg.Workspace = line
		return msg
	}
	msg.Workspace, msg.Event = ws, event

	kind, rest, _ := strings.Cut(event, ":")
	msg.Kind = kind
	switch types.ActivityKind(kind) {
	case types.ActivityWorkspaceSwitched:
		msg.Detail = rest
	default:
		msg.Tool, msg.Detail, _ = strings.Cut(rest, ":")
	}
	return msg
}

// Listener is the consumer side of one channel. The UI owns the real
// consumer; this one backs the listen command and tests.
type Listener struct {
	ln   net.Listener
	path string
}

// Listen binds a local socket at path, replacing a stale one.
func Listen(path string) (*Listener, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0600)
	return &Listener{ln: ln, path: path}, nil
}

func (l *Listener) Path() string {
	return l.path
}

// Serve accepts connections one at a time and hands each line to fn, so
// messages arrive in the order they were sent. It returns when ctx ends.
func (l *Listener) Serve(ctx context.Context, fn func(Message)) error {
	stop := context.AfterFunc(ctx, func() { _ = l.ln.Close() })
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := bufio.NewReader(conn).ReadString('\n')
		_ = conn.Close()
		if line == "" && err != nil {
			continue
		}
		fn(ParseLine(line))
	}
}

// Close stops accepting and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.path)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
