package mcp

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	wsdebug "github.com/standardbeagle/wsmcp/internal/debug"
	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
	"github.com/standardbeagle/wsmcp/internal/types"
)

// toolFunc is the body of one tool. It returns the value serialized as the
// tool result, or an error rendered as the error envelope.
type toolFunc func(ctx context.Context, args json.RawMessage) (interface{}, error)

type toolDef struct {
	tool *mcp.Tool
	fn   toolFunc
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func integer(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func boolean(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	defs := s.toolDefs()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.tool.Name
	}
	return names
}

func (s *Server) toolDefs() []toolDef {
	return []toolDef{
		{&mcp.Tool{
			Name:        "search_content",
			Description: "Search the text of every indexed file. Literal and case-insensitive unless isRegex or caseSensitive is set. Returns matching lines with surrounding context and the enclosing member.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"pattern":       str("Text or regular expression to find"),
				"isRegex":       boolean("Treat pattern as a regular expression (RE2 syntax)"),
				"caseSensitive": boolean("Match case exactly (default false)"),
				"contextLines":  integer("Lines of context before and after each match (default 2, max 10)"),
				"maxResults":    integer("Maximum matches to return (default 50, max 500)"),
			}, "pattern"),
		}, s.searchContent},
		{&mcp.Tool{
			Name:        "get_context_for_task",
			Description: "Rank files by relevance to a task description and return declaration outlines plus the bodies of the best matching members, within a file and token budget.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"task":      str("What you are trying to do, in plain words"),
				"maxFiles":  integer("Maximum files to include (default 10)"),
				"maxTokens": integer("Approximate token budget (default 8000)"),
			}, "task"),
		}, s.getContextForTask},
		{&mcp.Tool{
			Name:        "get_method_body",
			Description: "Return the source of every member named methodName declared in types named typeName (simple or qualified name).",
			InputSchema: object(map[string]*jsonschema.Schema{
				"typeName":   str("Containing type, e.g. OrderService or Shop.OrderService"),
				"methodName": str("Member name"),
			}, "typeName", "methodName"),
		}, s.getMethodBody},
		{&mcp.Tool{
			Name:        "find_usages",
			Description: "List every call site whose written callee name equals symbolName. Matching is by simple name; overloads and receivers are not resolved.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"symbolName": str("Simple name of the called method or function"),
			}, "symbolName"),
		}, s.findUsages},
		{&mcp.Tool{
			Name:        "get_call_graph",
			Description: "Return the callers of a method (call sites outside the method itself) and the distinct names it calls.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"typeName":   str("Containing type"),
				"methodName": str("Method name"),
			}, "typeName", "methodName"),
		}, s.getCallGraph},
		{&mcp.Tool{
			Name:        "find_implementations",
			Description: "List the types whose declared base types or interfaces include the given name, matched by simple name.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"interfaceName": str("Interface or base type name"),
			}, "interfaceName"),
		}, s.findImplementations},
		{&mcp.Tool{
			Name:        "semantic_query",
			Description: "Find members matching every supplied criterion. Absent criteria do not constrain.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"criteria": object(map[string]*jsonschema.Schema{
					"isAsync":          boolean("Async methods"),
					"isStatic":         boolean("Static members"),
					"isAbstract":       boolean("Abstract members"),
					"isVirtual":        boolean("Virtual members"),
					"isOverride":       boolean("Overriding members"),
					"returnTypeEquals": str("Exact return type, whitespace-insensitive"),
					"namePattern":      str("Glob over member names, e.g. Get*Async"),
					"kind":             str("method, constructor, property or field"),
					"typeName":         str("Containing type, simple or qualified"),
					"visibility":       str("public, protected, internal or private"),
					"language":         str("csharp, go, java, typescript, javascript, python, rust or php"),
					"minParameters":    integer("Minimum parameter count"),
					"maxParameters":    integer("Maximum parameter count"),
				}),
				"limit": integer("Maximum matches to return (default 200)"),
			}, "criteria"),
		}, s.semanticQuery},
		{&mcp.Tool{
			Name:        "write_file",
			Description: "Write content to a file inside the workspace. An existing file is backed up first and restored if the write fails. The index is not updated; call reindex to see the change in queries.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"path":    str("Absolute path or path relative to the first workspace root"),
				"content": str("Complete new file content"),
			}, "path", "content"),
		}, s.writeFile},
		{&mcp.Tool{
			Name:        "preview_write",
			Description: "Show the unified diff write_file would apply, without touching the file.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"path":    str("Absolute path or path relative to the first workspace root"),
				"content": str("Complete new file content"),
			}, "path", "content"),
		}, s.previewWrite},
		{&mcp.Tool{
			Name:        "rename_symbol",
			Description: "Replace whole-word occurrences of oldName with newName in every analyzed file. Not scope-aware: comments and strings are renamed too. Set preview to get diffs without writing.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"oldName": str("Identifier to replace"),
				"newName": str("Replacement identifier"),
				"preview": boolean("Compute the edit without writing (default false)"),
			}, "oldName", "newName"),
		}, s.renameSymbol},
		{&mcp.Tool{
			Name:        "generate_interface",
			Description: "Emit an interface declaration with the public, non-static methods and properties of the named type.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"className": str("Type name, simple or qualified"),
			}, "className"),
		}, s.generateInterface},
		{&mcp.Tool{
			Name:        "extract_method",
			Description: "Move lines startLine..endLine of a method body into a new parameterless member of the same type and call it in their place. The file must be unchanged since the last index.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"path":          str("File containing the method"),
				"startLine":     integer("First line to extract (1-based)"),
				"endLine":       integer("Last line to extract (inclusive)"),
				"newMethodName": str("Name of the new member"),
			}, "path", "startLine", "endLine", "newMethodName"),
		}, s.extractMethod},
		{&mcp.Tool{
			Name:        "list_files",
			Description: "List indexed files, including those without a language analyzer. The optional glob matches the root-relative path, or the base name when it has no slash.",
			InputSchema: object(map[string]*jsonschema.Schema{
				"pattern": str("Glob such as **/*.cs or *Service*"),
			}),
		}, s.listFiles},
		{&mcp.Tool{
			Name:        "reindex",
			Description: "Rebuild the workspace index from disk and publish it atomically. Concurrent requests share one build.",
			InputSchema: object(map[string]*jsonschema.Schema{}),
		}, s.reindex},
		{&mcp.Tool{
			Name:        "index_stats",
			Description: "Report the index generation, roots, counts and analysis warnings.",
			InputSchema: object(map[string]*jsonschema.Schema{}),
		}, s.indexStats},
	}
}

// handle adapts a toolFunc to the SDK: it publishes activity events, turns
// errors into the error envelope and keeps a panicking tool from taking the
// session down.
func (s *Server) handle(name string, fn toolFunc) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		callID := uuid.NewString()
		start := time.Now()
		s.publish(types.ActivityEvent{Kind: types.ActivityStarted, Tool: name})

		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		defer func() {
			if r := recover(); r != nil {
				wsdebug.LogMCP("%s %s panicked: %v\n%s", callID, name, r, debug.Stack())
				panicErr := wserrors.NewToolError(wserrors.CodeInternal, "internal error: %v", r)
				s.publish(types.ActivityEvent{Kind: types.ActivityError, Tool: name, Detail: string(panicErr.Code)})
				result, err = createErrorResponse(name, panicErr)
			}
		}()

		out, callErr := fn(ctx, args)
		if callErr != nil {
			code := wserrors.CodeOf(callErr)
			wsdebug.LogMCP("%s %s failed after %s: [%s] %v", callID, name, time.Since(start), code, callErr)
			s.publish(types.ActivityEvent{Kind: types.ActivityError, Tool: name, Detail: string(code)})
			return createErrorResponse(name, callErr)
		}
		wsdebug.LogMCP("%s %s completed in %s", callID, name, time.Since(start))
		s.publish(types.ActivityEvent{Kind: types.ActivityCompleted, Tool: name})
		return createJSONResponse(out)
	}
}

func requireString(field, value string) error {
	if value == "" {
		return wserrors.InvalidArguments("%s is required", field)
	}
	return nil
}

func requireInt(field string, value *int) error {
	if value == nil {
		return wserrors.InvalidArguments("%s is required", field)
	}
	return nil
}
