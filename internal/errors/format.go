package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// asVecError returns err as a *VecError, wrapping plain errors as internal.
func asVecError(err error) *VecError {
	var ve *VecError
	if errors.As(err, &ve) {
		return ve
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForUser returns a user-friendly error message.
// If debug is true, the underlying cause is appended.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var ve *VecError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(ve.Message)
	sb.WriteString("\n")

	if ve.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(ve.Suggestion)
		sb.WriteString("\n")
	}

	if debug && ve.Cause != nil && ve.Cause.Error() != ve.Message {
		sb.WriteString("\nCause: ")
		sb.WriteString(ve.Cause.Error())
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", ve.Code))
	return sb.String()
}

// FormatForCLI formats an error for CLI output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	ve := asVecError(err)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ve.Message))
	if ve.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ve.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ve.Code))
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	ve := asVecError(err)

	je := jsonError{
		Code:       ve.Code,
		Message:    ve.Message,
		Category:   string(ve.Category),
		Severity:   string(ve.Severity),
		Details:    ve.Details,
		Suggestion: ve.Suggestion,
	}
	if ve.Cause != nil {
		je.Cause = ve.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var ve *VecError
	if !errors.As(err, &ve) {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": ve.Code,
		"message":    ve.Message,
		"category":   string(ve.Category),
		"severity":   string(ve.Severity),
	}
	if ve.Cause != nil {
		result["cause"] = ve.Cause.Error()
	}
	if ve.Suggestion != "" {
		result["suggestion"] = ve.Suggestion
	}
	for k, v := range ve.Details {
		result["detail_"+k] = v
	}
	return result
}
