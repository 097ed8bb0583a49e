package server

import (
	"errors"

	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/tools"
)

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("tool table is nil")
)

// Error response codes
const (
	StatusCodeConfigError         = "CONFIG_ERROR"
	StatusCodeValidationError     = "VALIDATION_ERROR"
	StatusCodeAuthenticationError = "AUTHENTICATION_ERROR"
	StatusCodeResourceNotFound    = "RESOURCE_NOT_FOUND"
	StatusCodeNetworkError        = "NETWORK_ERROR"
	StatusCodeUnknownError        = "UNKNOWN_ERROR"
)

// errorCode maps an error kind to its response code.
func errorCode(kind errortypes.Kind) string {
	switch kind {
	case errortypes.KindConfiguration:
		return StatusCodeConfigError
	case errortypes.KindValidation:
		return StatusCodeValidationError
	case errortypes.KindAuthentication:
		return StatusCodeAuthenticationError
	case errortypes.KindResourceNotFound:
		return StatusCodeResourceNotFound
	case errortypes.KindNetwork:
		return StatusCodeNetworkError
	default:
		return StatusCodeUnknownError
	}
}

// toResponse converts a dispatch result to the payload returned to the MCP
// client. Failures are reported in the payload, never as a transport error.
func toResponse(r tools.Result) tools.ToolResponse {
	if r.Err == nil {
		return tools.ToolResponse{
			Status: tools.StatusSuccess,
			Result: r.Text,
		}
	}
	return tools.ToolResponse{
		Status:    tools.StatusError,
		ErrorKind: string(r.Err.Kind),
		Code:      errorCode(r.Err.Kind),
		Error:     r.Err.UserMessage(),
	}
}
