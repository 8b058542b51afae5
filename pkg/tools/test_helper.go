package tools

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
)

// NewRequest builds a tool call request with the given arguments
func NewRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// IsErrorResult checks if a CallToolResult represents an error
func IsErrorResult(result *mcp.CallToolResult) bool {
	if result == nil {
		return false
	}

	// Check if the isError flag is set
	return result.IsError
}

// AssertErrorResult checks that a result is an error result and fails the test if not
func AssertErrorResult(t *testing.T, result *mcp.CallToolResult, message string) {
	t.Helper()
	if !IsErrorResult(result) {
		t.Error(message)
	}
}

// AssertErrorCode checks that a result is an error result carrying code
func AssertErrorCode(t *testing.T, result *mcp.CallToolResult, code core.ErrorCode) core.MCPError {
	t.Helper()
	var mcpErr core.MCPError
	if !IsErrorResult(result) {
		t.Errorf("expected %s error, got success: %s", code, ResultText(result))
		return mcpErr
	}
	if err := ParseResultJSON(result, &mcpErr); err != nil {
		t.Fatalf("error result is not a structured error: %v (%s)", err, ResultText(result))
	}
	if mcpErr.Code != string(code) {
		t.Errorf("error code = %s, want %s (%s)", mcpErr.Code, code, mcpErr.Message)
	}
	return mcpErr
}

// AssertSuccessResult checks that a result is a success result and fails the test if not
func AssertSuccessResult(t *testing.T, result *mcp.CallToolResult, message string) {
	t.Helper()
	if IsErrorResult(result) {
		t.Errorf("%s. Got error: %s", message, ResultText(result))
	}
}

// ResultText returns the first text content of a result
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

// ParseResultJSON parses the JSON content from a CallToolResult
func ParseResultJSON(result *mcp.CallToolResult, out interface{}) error {
	return json.Unmarshal([]byte(ResultText(result)), out)
}
