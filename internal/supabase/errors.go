package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoSession is returned by operations that need a signed-in session
	ErrNoSession = errors.New("no active session")
	// ErrNoRows is returned when a single-row read matched nothing
	ErrNoRows = errors.New("no rows returned")
	// ErrNoTokenInLink is returned when a redirect link carries no session
	ErrNoTokenInLink = errors.New("link does not contain an access token")
)

// APIError is an error response from the hosted service
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func parseAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}

	switch {
	case body.Msg != "":
		apiErr.Message = body.Msg
	case body.ErrorDescription != "":
		apiErr.Message = body.ErrorDescription
	case body.Message != "":
		apiErr.Message = body.Message
	case body.Error != "":
		apiErr.Message = body.Error
	default:
		apiErr.Message = http.StatusText(status)
	}

	return apiErr
}

// Message returns the user-facing text of err, unwrapping API errors
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func messageContains(err error, fragment string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), strings.ToLower(fragment))
}

// IsInvalidCredentials reports a wrong email/password pair
func IsInvalidCredentials(err error) bool {
	return messageContains(err, "Invalid login credentials")
}

// IsEmailNotConfirmed reports a sign-in before the verification link was used
func IsEmailNotConfirmed(err error) bool {
	return messageContains(err, "Email not confirmed")
}

// IsAlreadyRegistered reports a sign-up with an email that already has an account
func IsAlreadyRegistered(err error) bool {
	return messageContains(err, "already registered")
}

// isSessionRejected reports errors meaning the stored credential is no longer usable
func isSessionRejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusBadRequest ||
		apiErr.Status == http.StatusUnauthorized ||
		apiErr.Status == http.StatusForbidden ||
		apiErr.Status == http.StatusNotFound
}
