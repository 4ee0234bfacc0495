package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrTransient marks failures worth retrying.
	ErrTransient   = errors.New("transient provider failure")
	ErrRateLimited = &classified{msg: "rate limited", transient: true}
	ErrTimeout     = &classified{msg: "provider call timed out", transient: true}
	ErrUnavailable = &classified{msg: "provider unavailable", transient: true}

	ErrUnauthorized  = &classified{msg: "provider rejected credentials"}
	ErrBadRequest    = &classified{msg: "provider rejected request"}
	ErrInputTooLarge = &classified{msg: "input exceeds provider context limit"}
	ErrEmptyResponse = &classified{msg: "provider returned no text"}

	// ErrBusy is returned when a run is already in progress.
	ErrBusy = errors.New("a run is already in progress")
	// ErrShuttingDown is returned for runs requested after shutdown began.
	ErrShuttingDown = errors.New("scheduler is shutting down")
	// ErrInvalidSchedule reports an unusable schedule configuration.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

type classified struct {
	msg       string
	transient bool
}

func (c *classified) Error() string { return c.msg }

// Is lets errors.Is(err, ErrTransient) match every transient sentinel.
func (c *classified) Is(target error) bool {
	return c.transient && target == ErrTransient
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, ErrTransient)
}

// ClassifyStatus maps an HTTP status returned by a provider onto a sentinel.
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= http.StatusInternalServerError:
		return ErrUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusRequestEntityTooLarge:
		return ErrInputTooLarge
	default:
		return ErrBadRequest
	}
}

// ClassifyCallError wraps a provider error with the matching sentinel. status
// is the HTTP status, or zero when no response was received.
func ClassifyCallError(provider string, status int, err error) error {
	if status > 0 {
		return fmt.Errorf("%s: %w: %v", provider, ClassifyStatus(status), err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrUnavailable, err)
}
