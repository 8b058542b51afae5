// Package tools provides the emissions and route-ranking MCP tool
// implementations.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// InputParser is a generic function to parse request arguments into a strongly typed struct
func InputParser[T any](req mcp.CallToolRequest) (T, error) {
	var input T

	// Convert the arguments to JSON
	inputJSON, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, fmt.Errorf("invalid input format: %w", err)
	}

	// Parse into the specified type
	if err := json.Unmarshal(inputJSON, &input); err != nil {
		return input, err
	}

	return input, nil
}

// parseError converts a decoding failure into a tool error. Values rejected
// by a domain type's UnmarshalText keep their field and guidance.
func parseError(toolName string, err error) *core.MCPError {
	var invalid *emissions.InvalidInputError
	if errors.As(err, &invalid) {
		return core.FromDomainError(err)
	}

	out := core.NewError(core.ErrInvalidParameter, fmt.Sprintf("Failed to parse input: %v", err)).
		WithGuidance("Check parameter names and types against the example.")

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		out.WithField(typeErr.Field)
	}
	if example := GetToolUsageExample(toolName); example != "" {
		out.WithSuggestions(example)
	}
	return out
}

// WithParsedInput is a higher-order function that handles request parsing and error handling
func WithParsedInput[T any](
	handlerName string,
	handler func(ctx context.Context, input T, logger *slog.Logger) (interface{}, error),
) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := slog.Default().With("tool", handlerName)

		// Parse the input
		input, err := InputParser[T](req)
		if err != nil {
			logger.Error("failed to parse input", "error", err)
			return parseError(handlerName, err).ToMCPResult(), nil
		}

		// Call the handler with the parsed input
		result, err := handler(ctx, input, logger)
		if err != nil {
			mcpErr := core.FromDomainError(err)
			logger.Error("request rejected", "code", mcpErr.Code, "field", mcpErr.Field, "error", err)
			return mcpErr.ToMCPResult(), nil
		}

		return jsonResult(logger, result), nil
	}
}

// jsonResult marshals a handler result into a text result.
func jsonResult(logger *slog.Logger, result any) *mcp.CallToolResult {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		return core.NewError(core.ErrInternalError, "Failed to generate result").ToMCPResult()
	}

	logger.Debug("request completed", "result_size", len(resultBytes))
	return mcp.NewToolResultText(string(resultBytes))
}
