package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConfiguration  = errors.New("configuration error")
	ErrUpstream       = errors.New("upstream error")
	ErrParse          = errors.New("parse error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrTaskExpired    = errors.New("task context expired")
	ErrTaskFailed     = errors.New("task failed")
)

// MissingCredential builds a ConfigurationError naming the missing setting.
func MissingCredential(name string) error {
	return fmt.Errorf("%w: %s is not configured", ErrConfiguration, name)
}

// UpstreamError describes a non-2xx or malformed reply from a remote provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
	}
	return "upstream: " + e.Message
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}
