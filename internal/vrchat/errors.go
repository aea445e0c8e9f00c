// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package vrchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Code returns the HTTP status as a decimal string.
func (e *APIError) Code() string {
	return strconv.Itoa(e.Status)
}

// IsAuthError reports whether err carries a 401 or 403 response, which means
// the session cookie is no longer valid.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// ErrorCode returns the status code carried by err, or "" when err did not
// come from an API response.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code()
	}
	return ""
}

func newAPIError(status int, body []byte) *APIError {
	msg := extractErrorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{Status: status, Message: msg}
}

// extractErrorMessage reads `message`, then `error.message`, from a JSON body.
func extractErrorMessage(body []byte) string {
	var payload struct {
		Message *string `json:"message"`
		Error   *struct {
			Message *string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != nil {
		return *payload.Message
	}
	if payload.Error != nil && payload.Error.Message != nil {
		return *payload.Error.Message
	}
	return ""
}
