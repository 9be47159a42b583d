package salesforce

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Salesforce-specific errors.
var (
	// ErrResourceNotFound indicates the named entry is absent from the
	// org's resource discovery map.
	ErrResourceNotFound = errors.New("salesforce: unknown resource")

	// ErrSObjectNotFound indicates the sObject does not exist under
	// the exact requested name.
	ErrSObjectNotFound = errors.New("salesforce: sobject not found")

	// ErrAPIBudgetExhausted indicates the org's daily API request
	// allocation is down to the reserve buffer.
	ErrAPIBudgetExhausted = errors.New("salesforce: API request budget exhausted")
)

// APIError is an error response from the Salesforce REST API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("salesforce: API error %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("salesforce: API error %d: %s", e.StatusCode, e.Message)
}

// apiErrorBody is the JSON array body Salesforce returns with 4xx/5xx
// statuses.
type apiErrorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// apiErrorFromResponse builds an APIError from an error response,
// consuming the body. Falls back to the raw body text when it is not
// the documented JSON array.
func apiErrorFromResponse(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}

	var parsed []apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed) > 0 {
		apiErr.ErrorCode = parsed[0].ErrorCode
		apiErr.Message = parsed[0].Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// IsNotFound checks if the error indicates a missing resource or
// record.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, ErrResourceNotFound) || errors.Is(err, ErrSObjectNotFound)
}

// IsUnauthorized checks if the error indicates an authentication
// failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsForbidden checks if the error indicates a forbidden resource.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited checks if the error indicates the org's request limit
// was exceeded.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrAPIBudgetExhausted) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.ErrorCode == "REQUEST_LIMIT_EXCEEDED"
	}
	return false
}
