package types

import (
	"fmt"
	"time"
)

// ActivityKind is the lifecycle point an ActivityEvent reports.
type ActivityKind string

const (
	ActivityStarted           ActivityKind = "started"
	ActivityCompleted         ActivityKind = "completed"
	ActivityError             ActivityKind = "error"
	ActivityWorkspaceSwitched ActivityKind = "workspace-switched"
)

// DisconnectedText is the reserved event text announcing that the server went away.
const DisconnectedText = "disconnected"

// ActivityEvent describes a tool call or workspace change for an external observer.
type ActivityEvent struct {
	Workspace string
	Kind      ActivityKind
	Tool      string
	Detail    string
	Time      time.Time
}

// Text renders the event part of the activity wire line.
func (e ActivityEvent) Text() string {
	switch {
	case e.Kind == ActivityWorkspaceSwitched:
		return fmt.Sprintf("%s:%s", e.Kind, e.Detail)
	case e.Detail != "":
		return fmt.Sprintf("%s:%s:%s", e.Kind, e.Tool, e.Detail)
	default:
		return fmt.Sprintf("%s:%s", e.Kind, e.Tool)
	}
}
