package llm

import "fmt"

// ClientError is the base error type for everything this package returns.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error reported by an LLM provider.
type ProviderError struct {
	ClientError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	// RetryAfter is the provider-suggested wait in seconds, when given.
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// AuthenticationError indicates invalid or missing credentials.
type AuthenticationError struct{ ProviderError }

// AccessDeniedError indicates the credentials lack permission.
type AccessDeniedError struct{ ProviderError }

// NotFoundError indicates an unknown model or endpoint.
type NotFoundError struct{ ProviderError }

// InvalidRequestError indicates the provider rejected the request shape.
type InvalidRequestError struct{ ProviderError }

// RateLimitError indicates the provider throttled the request.
type RateLimitError struct{ ProviderError }

// ServerError indicates a provider-side failure.
type ServerError struct{ ProviderError }

// ContentFilterError indicates the provider blocked the content.
type ContentFilterError struct{ ProviderError }

// ContextLengthError indicates the prompt exceeded the model's window.
type ContextLengthError struct{ ProviderError }

// QuotaExceededError indicates the account is out of quota.
type QuotaExceededError struct{ ProviderError }

// RequestTimeoutError indicates the request exceeded its deadline.
type RequestTimeoutError struct{ ClientError }

// AbortError indicates the request was cancelled by the caller.
type AbortError struct{ ClientError }

// NetworkError indicates a transport-level failure.
type NetworkError struct{ ClientError }

// StreamErrorType indicates a failure mid-stream.
type StreamErrorType struct{ ClientError }

// ConfigurationError indicates the client was misconfigured.
type ConfigurationError struct{ ClientError }

// ErrorFromStatusCode maps an HTTP status code to a typed error.
func ErrorFromStatusCode(statusCode int, message, provider, errorCode string, retryAfter *float64) error {
	pe := ProviderError{
		ClientError: ClientError{Message: message},
		Provider:    provider,
		StatusCode:  statusCode,
		ErrorCode:   errorCode,
		RetryAfter:  retryAfter,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401:
		return &AuthenticationError{ProviderError: pe}
	case 403:
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{ClientError: pe.ClientError}
	case 413:
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}

// IsRetryable reports whether an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch e := err.(type) {
	case *AuthenticationError, *AccessDeniedError, *NotFoundError,
		*InvalidRequestError, *ContextLengthError, *QuotaExceededError,
		*ContentFilterError, *ConfigurationError, *AbortError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *NetworkError, *StreamErrorType, *RequestTimeoutError:
		return true
	case *ProviderError:
		return e.Retryable
	default:
		// Unknown errors default to retryable.
		return true
	}
}
