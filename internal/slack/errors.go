// Package slack provides the outbound Slack Web API boundary: a
// bearer-token client, a canonical error type, and pagination helpers.
package slack

import "fmt"

// ErrorKind categorizes a Slack API failure.
type ErrorKind string

const (
	// ErrorKindAuth indicates the token is invalid or revoked. The caller
	// must not retry without re-authenticating.
	ErrorKindAuth ErrorKind = "auth"

	// ErrorKindMissingScope indicates the token lacks an OAuth scope
	// required by the method. Retrying is pointless until the app is
	// reinstalled with the scope granted.
	ErrorKindMissingScope ErrorKind = "missing_scope"

	// ErrorKindRateLimited indicates the workspace hit a rate limit.
	// RetryAfter carries the server-supplied delay in seconds.
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindUnknownMethod indicates the API method name does not
	// exist. This is a programming error, not a transient condition.
	ErrorKindUnknownMethod ErrorKind = "unknown_method"

	// ErrorKindAPI is any other remote failure.
	ErrorKindAPI ErrorKind = "api"
)

// APIError is the canonical error returned by the client. Callers inspect
// Kind to decide whether a retry can ever succeed; the client itself never
// retries.
type APIError struct {
	Kind       ErrorKind
	Method     string
	Message    string
	RetryAfter int // seconds, set only for ErrorKindRateLimited
}

func (e *APIError) Error() string {
	switch e.Kind {
	case ErrorKindRateLimited:
		return fmt.Sprintf("rate limited on %s: retry after %d seconds", e.Method, e.RetryAfter)
	case ErrorKindMissingScope:
		return fmt.Sprintf("missing required OAuth scope for %s: %s", e.Method, e.Message)
	case ErrorKindUnknownMethod:
		return fmt.Sprintf("unknown API method %s", e.Method)
	case ErrorKindAuth:
		return fmt.Sprintf("authentication failed: %s", e.Message)
	default:
		return fmt.Sprintf("slack API error (%s): %s", e.Method, e.Message)
	}
}

// classifyError maps a Slack error code from the response envelope to an
// APIError. Codes per the Web API docs; anything unrecognized stays generic.
func classifyError(method, code string, retryAfter int) *APIError {
	switch code {
	case "invalid_auth", "token_revoked", "account_inactive", "not_authed":
		return &APIError{
			Kind:    ErrorKindAuth,
			Method:  method,
			Message: "OAuth token is invalid or revoked, regenerate the token",
		}
	case "missing_scope":
		return &APIError{
			Kind:    ErrorKindMissingScope,
			Method:  method,
			Message: "add the required scopes and reinstall the app",
		}
	case "ratelimited", "rate_limited":
		if retryAfter <= 0 {
			retryAfter = 60
		}
		return &APIError{Kind: ErrorKindRateLimited, Method: method, RetryAfter: retryAfter}
	case "unknown_method", "method_deprecated":
		return &APIError{Kind: ErrorKindUnknownMethod, Method: method, Message: code}
	default:
		return &APIError{Kind: ErrorKindAPI, Method: method, Message: code}
	}
}
