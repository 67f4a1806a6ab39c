package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	wserrors "github.com/standardbeagle/wsmcp/internal/errors"
)

// ErrorBody is the structured error a failed tool call returns.
type ErrorBody struct {
	Code        wserrors.Code `json:"code"`
	Message     string        `json:"message"`
	Tool        string        `json:"tool"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// toolErrorNote tells clients where tool failures are reported.
const toolErrorNote = `Failures return a result with isError set whose text is {"error":{"code","message","tool","suggestions"}}.`

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the client sees the code and can correct itself. Protocol-level
// errors are reserved for protocol violations.
func createErrorResponse(tool string, err error) (*mcp.CallToolResult, error) {
	body := errorEnvelope{Error: ErrorBody{
		Code:        wserrors.CodeOf(err),
		Message:     err.Error(),
		Tool:        tool,
		Suggestions: wserrors.SuggestionsOf(err),
	}}

	response, marshalErr := createJSONResponse(body)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// decodeArgs unmarshals tool arguments. Missing arguments leave v untouched.
func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return wserrors.InvalidArguments("invalid arguments: %v", err)
	}
	return nil
}
