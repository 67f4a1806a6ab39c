package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be set at build time:
// go build -ldflags "-X github.com/standardbeagle/wsmcp/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	mu      sync.Mutex
	out     io.Writer
	logFile *os.File
	mcpMode bool
)

// SetMCPMode marks the process as speaking the protocol on stdio. In MCP mode
// output only ever goes to a log file.
func SetMCPMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	mcpMode = enabled
}

// SetOutput sets the writer for debug output. Nil disables output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// InitLogFile routes debug output to a timestamped file in the temp directory
// and returns its path.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "wsmcp-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("wsmcp-%s-%d.log", time.Now().Format("2006-01-02T150405"), os.Getpid()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	logFile = f
	out = f
	return path, nil
}

// Close closes the log file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	out = nil
	return err
}

// IsEnabled reports whether debug output is switched on by build flag or DEBUG env.
func IsEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if mcpMode && logFile == nil {
		return nil
	}
	return out
}

// Log writes one component-tagged line.
func Log(component, format string, args ...interface{}) {
	if !IsEnabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(w, "%s [%s] %s\n", time.Now().Format("15:04:05.000"), component, msg)
}

func LogIndexing(format string, args ...interface{}) {
	Log("INDEX", format, args...)
}

func LogMCP(format string, args ...interface{}) {
	Log("MCP", format, args...)
}

func LogRefactor(format string, args ...interface{}) {
	Log("REFACTOR", format, args...)
}

func LogNotify(format string, args ...interface{}) {
	Log("NOTIFY", format, args...)
}

func LogWorkspace(format string, args ...interface{}) {
	Log("WORKSPACE", format, args...)
}

// Fatal records a fatal condition and returns it as an error. It never exits;
// the CLI entry point decides the exit code.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if w := writer(); w != nil {
		mu.Lock()
		fmt.Fprintf(w, "%s [FATAL] %s\n", time.Now().Format("15:04:05.000"), msg)
		mu.Unlock()
	}
	return fmt.Errorf("fatal error: %s", msg)
}
