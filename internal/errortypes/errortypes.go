// Package errortypes provides the closed error taxonomy shared by the
// Trakt client and the tool dispatch table.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Kind identifies the class of a ToolError. The string values are stable and
// are shown to MCP clients.
type Kind string

// Error kinds
const (
	KindConfiguration    Kind = "ConfigurationError"
	KindValidation       Kind = "ValidationError"
	KindAuthentication   Kind = "AuthenticationError"
	KindResourceNotFound Kind = "ResourceNotFoundError"
	KindNetwork          Kind = "NetworkError"
)

// Kinds lists every kind in the taxonomy.
var Kinds = []Kind{
	KindConfiguration,
	KindValidation,
	KindAuthentication,
	KindResourceNotFound,
	KindNetwork,
}

// ToolError is a classified failure with a human-readable message.
type ToolError struct {
	Kind    Kind
	Message string
	Err     error
	Fields  map[string]interface{}
}

// Error implements the error interface
func (e *ToolError) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *ToolError) Unwrap() error {
	return e.Err
}

// UserMessage returns the short kind-tagged text shown to the calling agent.
// It never includes the wrapped cause, which may carry transport details.
func (e *ToolError) UserMessage() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown failure"
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// WithField adds a field to the error for additional context
func (e *ToolError) WithField(key string, value interface{}) *ToolError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

func newToolError(kind Kind, err error, message string) *ToolError {
	return &ToolError{
		Kind:    kind,
		Message: message,
		Err:     err,
		Fields:  make(map[string]interface{}),
	}
}

// ConfigurationError creates a new configuration error
func ConfigurationError(err error, message string) *ToolError {
	return newToolError(KindConfiguration, err, message)
}

// ValidationError creates a new validation error
func ValidationError(err error, message string) *ToolError {
	return newToolError(KindValidation, err, message)
}

// AuthenticationError creates a new authentication error
func AuthenticationError(err error, message string) *ToolError {
	return newToolError(KindAuthentication, err, message)
}

// ResourceNotFoundError creates a not-found error carrying the identifier
// that could not be resolved upstream.
func ResourceNotFoundError(err error, identifier, message string) *ToolError {
	return newToolError(KindResourceNotFound, err, message).WithField("identifier", identifier)
}

// NetworkError creates a new network error
func NetworkError(err error, message string) *ToolError {
	return newToolError(KindNetwork, err, message)
}

// As returns the ToolError in err's chain, if any.
func As(err error) (*ToolError, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	if toolErr, ok := As(err); ok {
		return toolErr.Kind
	}
	return ""
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool { return KindOf(err) == KindConfiguration }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return KindOf(err) == KindValidation }

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool { return KindOf(err) == KindAuthentication }

// IsResourceNotFoundError checks if an error is a not-found error
func IsResourceNotFoundError(err error) bool { return KindOf(err) == KindResourceNotFound }

// IsNetworkError checks if an error is a network error
func IsNetworkError(err error) bool { return KindOf(err) == KindNetwork }

// LogError logs err using the provided slog.Logger or the default slog logger.
// ToolErrors are logged with their kind, cause and fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	toolErr, ok := As(err)
	if !ok {
		logger.Error(err.Error(), "error", err)
		return
	}

	args := []any{"kind", string(toolErr.Kind)}
	if toolErr.Err != nil {
		args = append(args, "cause", toolErr.Err.Error())
	}
	keys := make([]string, 0, len(toolErr.Fields))
	for k := range toolErr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, toolErr.Fields[k])
	}

	// Auth and config failures need operator attention; the rest are
	// per-call outcomes.
	switch toolErr.Kind {
	case KindAuthentication, KindConfiguration:
		logger.Error(toolErr.Message, args...)
	default:
		logger.Warn(toolErr.Message, args...)
	}
}
