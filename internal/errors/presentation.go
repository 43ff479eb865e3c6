package errors

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// UserMessage returns a user-friendly error message
func UserMessage(err error) string {
	if mErr, ok := err.(*Error); ok {
		return formatUserError(mErr)
	}
	return err.Error()
}

// formatUserError creates user-friendly error messages based on error type
func formatUserError(mErr *Error) string {
	switch mErr.Type {
	case ErrorTypeValidation:
		return formatValidationError(mErr)
	case ErrorTypeNetwork:
		return formatNetworkError(mErr)
	case ErrorTypeState:
		return formatStateError(mErr)
	case ErrorTypeConfig:
		return formatConfigError(mErr)
	default:
		return mErr.Message
	}
}

func formatValidationError(mErr *Error) string {
	msg := mErr.Message
	if field, ok := mErr.Context["field"]; ok {
		msg = fmt.Sprintf("Invalid %s: %s", field, msg)
	}

	// Don't add suggestion formatting - let zerolog handle all formatting
	// The suggestion context can be logged as a separate field if needed
	return msg
}

func formatNetworkError(mErr *Error) string {
	msg := mErr.Message
	if url, ok := mErr.Context["url"]; ok {
		msg = fmt.Sprintf("Network error accessing %s: %s", url, msg)
	}

	return msg
}

func formatStateError(mErr *Error) string {
	msg := mErr.Message
	if state, ok := mErr.Context["ready_state"]; ok {
		msg = fmt.Sprintf("%s (readyState %v)", msg, state)
	}

	return msg
}

func formatConfigError(mErr *Error) string {
	msg := mErr.Message

	if configType, ok := mErr.Context["config_type"]; ok {
		msg = fmt.Sprintf("Configuration error (%s): %s", configType, msg)
	}

	return msg
}

// PresentError displays an error to the user through centralized zerolog system
func PresentError(err error) {
	if err == nil {
		return
	}

	// Use the global logger
	if mErr, ok := err.(*Error); ok {
		event := log.Fatal()

		// Add context fields as structured data
		for key, value := range mErr.Context {
			event = event.Interface(key, value)
		}

		event.Msg(mErr.Message)
	} else {
		log.Fatal().Err(err).Msg("")
	}
}

// DebugInfo returns detailed error information for debugging
func DebugInfo(err error) map[string]interface{} {
	info := map[string]interface{}{
		"error":   err.Error(),
		"type":    "unknown",
		"context": map[string]interface{}{},
	}

	if mErr, ok := err.(*Error); ok {
		info["type"] = string(mErr.Type)
		info["message"] = mErr.Message
		info["context"] = mErr.Context

		if mErr.Cause != nil {
			info["cause"] = mErr.Cause.Error()
		}
	}

	return info
}
