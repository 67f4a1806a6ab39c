// Package notify implements the fire-and-forget signaling channel to the
// desktop UI. Each message is one line written over a fresh local socket
// connection; nothing waits for, retries, or acknowledges a consumer.
package notify

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/wsmcp/internal/debug"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// Default limits.
const (
	DefaultDialTimeout = 250 * time.Millisecond
	DefaultQueueSize   = 64
)

// Options configure a Notifier. An empty path disables that channel.
type Options struct {
	HandshakePath string
	ActivityPath  string
	DialTimeout   time.Duration
	QueueSize     int
}

type dialFunc func(ctx context.Context, path string) (net.Conn, error)

func dialUnix(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

// Notifier pushes handshake and activity lines. Publish never blocks: events
// go through a bounded queue drained by one sender goroutine and are dropped
// when the queue is full. A nil *Notifier is a valid no-op.
type Notifier struct {
	workspace atomic.Pointer[string]
	opts      Options
	dial      dialFunc

	queue chan string
	stop  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// New starts the sender goroutine. Close must be called to stop it.
func New(workspace string, opts Options) *Notifier {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	n := &Notifier{
		opts:  opts,
		dial:  dialUnix,
		queue: make(chan string, opts.QueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	n.workspace.Store(&workspace)
	go n.run()
	return n
}

// Workspace returns the name used to prefix activity lines.
func (n *Notifier) Workspace() string {
	if n == nil {
		return ""
	}
	return *n.workspace.Load()
}

// SetWorkspace changes the prefix for later events.
func (n *Notifier) SetWorkspace(name string) {
	if n == nil {
		return
	}
	n.workspace.Store(&name)
}

// Handshake announces the active workspace on the handshake channel. It is
// synchronous but bounded by the dial timeout; a missing consumer is
// reported as an error the caller is free to ignore.
func (n *Notifier) Handshake(ctx context.Context) error {
	if n == nil || n.opts.HandshakePath == "" {
		return nil
	}
	return n.send(ctx, n.opts.HandshakePath, n.Workspace())
}

// Publish queues ev for the activity channel.
func (n *Notifier) Publish(ev types.ActivityEvent) {
	if n == nil || n.opts.ActivityPath == "" || n.closed.Load() {
		return
	}
	ws := ev.Workspace
	if ws == "" {
		ws = n.Workspace()
	}
	n.enqueue(ws + "|" + ev.Text())
}

func (n *Notifier) enqueue(line string) {
	select {
	case n.queue <- line:
	default:
		n.dropped.Add(1)
		debug.LogNotify("queue full, dropped %q", line)
	}
}

// Stats reports delivered and dropped activity lines.
func (n *Notifier) Stats() (sent, dropped uint64) {
	if n == nil {
		return 0, 0
	}
	return n.sent.Load(), n.dropped.Load()
}

// Close flushes what is queued, sends the disconnect line and stops the
// sender. It waits at most ctx's deadline.
func (n *Notifier) Close(ctx context.Context) {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		n.closed.Store(true)
		close(n.stop)
	})
	select {
	case <-n.done:
	case <-ctx.Done():
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for {
		select {
		case line := <-n.queue:
			n.deliver(line)
		case <-n.stop:
			for {
				select {
				case line := <-n.queue:
					n.deliver(line)
				default:
					if n.opts.ActivityPath != "" {
						n.deliver(n.Workspace() + "|" + types.DisconnectedText)
					}
					return
				}
			}
		}
	}
}

func (n *Notifier) deliver(line string) {
	if err := n.send(context.Background(), n.opts.ActivityPath, line); err != nil {
		n.dropped.Add(1)
		return
	}
	n.sent.Add(1)
}

// send makes one connection, writes one line and hangs up.
func (n *Notifier) send(ctx context.Context, path, line string) error {
	ctx, cancel := context.WithTimeout(ctx, n.opts.DialTimeout)
	defer cancel()

	conn, err := n.dial(ctx, path)
	if err != nil {
		debug.LogNotify("no consumer on %s: %v", path, err)
		return err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(n.opts.DialTimeout))
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		debug.LogNotify("write to %s failed: %v", path, err)
		return err
	}
	return nil
}
