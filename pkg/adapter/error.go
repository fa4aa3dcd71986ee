package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ModelError wraps provider errors with status metadata.
type ModelError struct {
	Backend   string
	Status    int
	Temporary bool
	Err       error
}

func (e *ModelError) Error() string {
	if e == nil {
		return "model error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s: model error (status=%d)", e.Backend, e.Status)
}

func (e *ModelError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var modelErr *ModelError
	if errors.As(err, &modelErr) {
		if modelErr.Temporary {
			return true
		}
		if modelErr.Status == 429 || (modelErr.Status >= 500 && modelErr.Status <= 599) {
			return true
		}
	}
	return false
}
