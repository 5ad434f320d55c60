package remote

import (
	"errors"
	"fmt"
)

// TransientNetworkError reports that the remote could not be reached at all
// (connection refused, DNS failure, transport timeout). The request may be
// retried later unchanged.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: remote unreachable: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// RemoteError reports a response that was received but not accepted: a
// non-2xx status or a body that could not be decoded.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a connectivity failure.
func IsTransient(err error) bool {
	var transient *TransientNetworkError
	return errors.As(err, &transient)
}
