package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a fallback when internal errors occur.
	SystemErrorMessage = "internal error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// BackendErrorMessage describes bot client (REST backend) failures.
	BackendErrorMessage = "backend request failed"
	// NLUErrorMessage describes dialogue engine failures.
	NLUErrorMessage = "nlu request failed"
	// TransportErrorMessage describes chat transport failures.
	TransportErrorMessage = "chat transport failed"
)

// AppError wraps an underlying error with an HTTP-flavoured status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRedis maps Redis errors to an AppError; redis.Nil becomes 404.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapBackend wraps a bot client failure.
func WrapBackend(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, BackendErrorMessage)
}

// WrapNLU wraps a dialogue engine failure.
func WrapNLU(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, NLUErrorMessage)
}

// WrapTransport wraps a chat transport failure.
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusServiceUnavailable, TransportErrorMessage)
}

// StatusOf returns the status carried by the first AppError in the chain,
// or 500 when there is none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
