package backend

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrUnavailable marks failures where the backend could not be reached.
var ErrUnavailable = errors.New("backend unavailable")

// RequestError describes a failed backend call.
type RequestError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Status > 0 && e.Detail != "":
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Detail)
	case e.Status > 0:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the backend could not be reached
// at all (connection refused, DNS failure, timeout before a response).
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
