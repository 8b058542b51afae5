// Package core provides shared utilities for the emissions and route-ranking
// MCP tools: structured tool errors, tool schema builders and auth helpers.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// ErrorCode defines standard error codes for MCP tools
type ErrorCode string

// Standard error codes
const (
	// Input validation errors
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrInvalidParameter ErrorCode = "INVALID_PARAMETER"
	ErrMissingParameter ErrorCode = "MISSING_PARAMETER"

	// Catalog lookups
	ErrUnknownVehicle ErrorCode = "UNKNOWN_VEHICLE"
	ErrUnknownRoute   ErrorCode = "UNKNOWN_ROUTE"

	// Informational: ranking left no candidate within the time budget
	ErrNoViableRoute ErrorCode = "NO_VIABLE_ROUTE"

	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// MCPError represents a detailed error structure for MCP tool responses
type MCPError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Field       string   `json:"field,omitempty"`
	Query       string   `json:"query,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Guidance    string   `json:"guidance,omitempty"`
}

// Error implements the error interface
func (e MCPError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new MCPError with the given code and message
func NewError(code ErrorCode, message string) *MCPError {
	return &MCPError{
		Code:    string(code),
		Message: message,
	}
}

// WithField names the offending input field
func (e *MCPError) WithField(field string) *MCPError {
	e.Field = field
	return e
}

// WithQuery adds query information to the error
func (e *MCPError) WithQuery(query string) *MCPError {
	e.Query = query
	return e
}

// WithGuidance adds guidance information to the error
func (e *MCPError) WithGuidance(guidance string) *MCPError {
	e.Guidance = guidance
	return e
}

// WithSuggestions adds suggestions to the error
func (e *MCPError) WithSuggestions(suggestions ...string) *MCPError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// ToMCPResult converts the error to an MCP tool result
func (e *MCPError) ToMCPResult() *mcp.CallToolResult {
	errorJSON, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ERROR: %s - %s", e.Code, e.Message))
	}

	return mcp.NewToolResultError(string(errorJSON))
}

// Guidance per offending field.
var fieldGuidance = map[string]string{
	"trafficLevel":          "trafficLevel is a percentage between 0 and 100.",
	"weatherConditions":     "weatherConditions is a severity percentage between 0 and 100.",
	"globalFactor":          "globalFactor is a multiplier of at least 1, as returned by global_factors.",
	"sensitivity":           "Sensitivity is a route rating between 1 (barely affected) and 10 (fully affected).",
	"trafficSensitivity":    "Sensitivity is a route rating between 1 (barely affected) and 10 (fully affected).",
	"weatherSensitivity":    "Sensitivity is a route rating between 1 (barely affected) and 10 (fully affected).",
	"distance":              "Distance is in kilometres and must be positive.",
	"efficiency":            "Efficiency is a fraction between 0 and 1.",
	"utilization":           "Utilization is a fraction between 0 and 1.",
	"terrain":               "Use one of flat, hilly, mountainous.",
	"category":              "Use one of car, truck, van.",
	"subtype":               "Cars take petrol, diesel, hybrid or electric; trucks and vans take small, medium or large.",
	"timeConstraintMinutes": "The time budget is in minutes and must be positive.",
	"priority":              "Use one of duration, fuel, emissions.",
}

// FromDomainError maps an engine error to a structured tool error.
// Invalid input becomes INVALID_INPUT, or UNKNOWN_VEHICLE / UNKNOWN_ROUTE
// for failed catalog lookups; anything else is INTERNAL_ERROR.
func FromDomainError(err error) *MCPError {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var invalid *emissions.InvalidInputError
	if !errors.As(err, &invalid) {
		return NewError(ErrInternalError, err.Error()).
			WithGuidance("This is unexpected. Please report the request that caused it.")
	}

	code := ErrInvalidInput
	switch invalid.Field {
	case "preset", "category", "subtype":
		code = ErrUnknownVehicle
	case "origin", "destination", "route":
		code = ErrUnknownRoute
	}

	out := NewValidationError(code, err.Error()).WithField(invalid.Field)
	if g, ok := fieldGuidance[fieldRoot(invalid.Field)]; ok {
		out.WithGuidance(g)
	}
	return out
}

// fieldRoot strips an index suffix such as "reductionFactor[Eco-Driving]".
func fieldRoot(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		return field[:i]
	}
	return field
}

// NewValidationError creates an error for validation failures
func NewValidationError(code ErrorCode, message string) *MCPError {
	return NewError(code, message).
		WithGuidance("Please correct the parameters and try again.")
}
