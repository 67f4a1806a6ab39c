package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Code is the stable, client-visible identifier of an error condition.
type Code string

const (
	CodeIndex            Code = "index_error"
	CodeAnalysisWarning  Code = "analysis_warning"
	CodeProtocol         Code = "protocol_error"
	CodeInvalidArguments Code = "invalid_arguments"
	CodeNotFound         Code = "not_found"
	CodePathEscape       Code = "path_escape"
	CodeTypeNotFound     Code = "type_not_found"
	CodeRange            Code = "range_error"
	CodeWriteFailure     Code = "write_failure"
	CodeIndexStale       Code = "index_stale"
	CodeInternal         Code = "internal_error"
)

// IndexError means the workspace could not be indexed at all.
type IndexError struct {
	Workspace  string
	Reason     string
	Underlying error
	Timestamp  time.Time
}

func NewIndexError(workspace, reason string, err error) *IndexError {
	return &IndexError{
		Workspace:  workspace,
		Reason:     reason,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *IndexError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("index workspace %q: %s: %v", e.Workspace, e.Reason, e.Underlying)
	}
	return fmt.Sprintf("index workspace %q: %s", e.Workspace, e.Reason)
}

func (e *IndexError) Unwrap() error {
	return e.Underlying
}

// AnalysisWarning records a single file that could not be analyzed. It is
// kept on the index and never aborts a build.
type AnalysisWarning struct {
	Path       string
	Reason     string
	Underlying error
}

func NewAnalysisWarning(path, reason string, err error) *AnalysisWarning {
	return &AnalysisWarning{Path: path, Reason: reason, Underlying: err}
}

func (e *AnalysisWarning) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *AnalysisWarning) Unwrap() error {
	return e.Underlying
}

// ProtocolError is a session-level protocol violation.
type ProtocolError struct {
	Method  string
	Message string
}

func NewProtocolError(method, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Method: method, Message: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("protocol error on %s: %s", e.Method, e.Message)
	}
	return "protocol error: " + e.Message
}

// ToolError is a failed tool call. It is reported to the calling session only.
type ToolError struct {
	Code        Code
	Tool        string
	Message     string
	Suggestions []string
	Underlying  error
}

func NewToolError(code Code, format string, args ...interface{}) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidArguments is shorthand for a ToolError with CodeInvalidArguments.
func InvalidArguments(format string, args ...interface{}) *ToolError {
	return NewToolError(CodeInvalidArguments, format, args...)
}

// NotFound is shorthand for a ToolError with CodeNotFound.
func NotFound(format string, args ...interface{}) *ToolError {
	return NewToolError(CodeNotFound, format, args...)
}

// WithSuggestions attaches did-you-mean candidates.
func (e *ToolError) WithSuggestions(s []string) *ToolError {
	e.Suggestions = s
	return e
}

func (e *ToolError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("%s (did you mean: %s)", e.Message, strings.Join(e.Suggestions, ", "))
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Underlying
}

// WriteFailure is a disk error during a write. Restored reports whether the
// original content was put back from the backup.
type WriteFailure struct {
	Path       string
	BackupPath string
	Restored   bool
	Underlying error
	Timestamp  time.Time
}

func NewWriteFailure(path, backup string, restored bool, err error) *WriteFailure {
	return &WriteFailure{
		Path:       path,
		BackupPath: backup,
		Restored:   restored,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *WriteFailure) Error() string {
	state := "original restored from backup"
	switch {
	case e.BackupPath == "":
		state = "no backup taken"
	case !e.Restored:
		state = "restore from " + e.BackupPath + " failed"
	}
	return fmt.Sprintf("write %s failed (%s): %v", e.Path, state, e.Underlying)
}

func (e *WriteFailure) Unwrap() error {
	return e.Underlying
}

// PathEscapeError rejects a path that resolves outside every workspace root.
type PathEscapeError struct {
	Path     string
	Resolved string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("path %q resolves to %q which is outside every workspace root", e.Path, e.Resolved)
}

// TypeNotFoundError means no indexed type has the requested name.
type TypeNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *TypeNotFoundError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("type %q not found in index (did you mean: %s)", e.Name, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("type %q not found in index", e.Name)
}

// RangeError rejects a line range that is not inside a single member body.
type RangeError struct {
	Path      string
	StartLine int
	EndLine   int
	Reason    string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %s:%d-%d: %s", e.Path, e.StartLine, e.EndLine, e.Reason)
}

// CodeOf maps any error to its stable code.
func CodeOf(err error) Code {
	var (
		toolErr   *ToolError
		escapeErr *PathEscapeError
		typeErr   *TypeNotFoundError
		rangeErr  *RangeError
		writeErr  *WriteFailure
		indexErr  *IndexError
		protoErr  *ProtocolError
		warnErr   *AnalysisWarning
	)
	switch {
	case err == nil:
		return ""
	case stderrors.As(err, &toolErr):
		return toolErr.Code
	case stderrors.As(err, &escapeErr):
		return CodePathEscape
	case stderrors.As(err, &typeErr):
		return CodeTypeNotFound
	case stderrors.As(err, &rangeErr):
		return CodeRange
	case stderrors.As(err, &writeErr):
		return CodeWriteFailure
	case stderrors.As(err, &indexErr):
		return CodeIndex
	case stderrors.As(err, &protoErr):
		return CodeProtocol
	case stderrors.As(err, &warnErr):
		return CodeAnalysisWarning
	default:
		return CodeInternal
	}
}

// SuggestionsOf returns the did-you-mean candidates carried by err, if any.
func SuggestionsOf(err error) []string {
	var toolErr *ToolError
	if stderrors.As(err, &toolErr) && len(toolErr.Suggestions) > 0 {
		return toolErr.Suggestions
	}
	var typeErr *TypeNotFoundError
	if stderrors.As(err, &typeErr) {
		return typeErr.Suggestions
	}
	return nil
}
