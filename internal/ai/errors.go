// errors.go - Categorization of generation API failures

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// GenerationError is a categorized generation API error. Retryable marks
// whether a retry could plausibly succeed; this pipeline never retries
// itself, the flag is reported upward for the caller to decide.
type GenerationError struct {
	OriginalError error
	Category      string
	StatusCode    int
	Message       string
	Retryable     bool
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("[%s] %s (status: %d, retryable: %v)", e.Category, e.Message, e.StatusCode, e.Retryable)
}

func (e *GenerationError) Unwrap() error {
	return e.OriginalError
}

// categorizeError analyzes a generation call failure.
func categorizeError(err error) *GenerationError {
	if err == nil {
		return nil
	}

	genErr := &GenerationError{
		OriginalError: err,
		Category:      "unknown",
		Message:       err.Error(),
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		genErr.StatusCode = apiErr.Code

		switch apiErr.Code {
		case 400:
			genErr.Category = "bad_request"
			genErr.Message = "Invalid request format or parameters"
		case 401:
			genErr.Category = "unauthorized"
			genErr.Message = "Invalid API key or authentication failed"
		case 403:
			genErr.Category = "forbidden"
			genErr.Message = "API key lacks required permissions"
		case 404:
			genErr.Category = "not_found"
			genErr.Message = "Model not found or invalid endpoint"
		case 429:
			genErr.Category = "rate_limit"
			genErr.Message = "Rate limit exceeded - too many requests"
			genErr.Retryable = true
		case 500, 502, 503, 504:
			genErr.Category = "server_error"
			genErr.Message = fmt.Sprintf("Generation server error (%d)", apiErr.Code)
			genErr.Retryable = true
		default:
			genErr.Category = "unknown_api_error"
			genErr.Message = fmt.Sprintf("API error: %s", apiErr.Message)
			genErr.Retryable = apiErr.Code >= 500
		}
		return genErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		genErr.Category = "timeout"
		genErr.Message = "Request timeout - generation took too long"
		genErr.Retryable = true
		return genErr
	}

	if errors.Is(err, context.Canceled) {
		genErr.Category = "canceled"
		genErr.Message = "Request was canceled"
		return genErr
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "limit"):
		genErr.Category = "quota_exceeded"
		genErr.Message = "API quota exceeded"
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		genErr.Category = "timeout"
		genErr.Message = "Request timeout"
		genErr.Retryable = true
	case strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network"):
		genErr.Category = "network_error"
		genErr.Message = "Network connection error"
		genErr.Retryable = true
	}

	return genErr
}
