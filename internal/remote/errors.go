package remote

import "errors"

// ErrUnavailable matches every failure returned by the gateway.
var ErrUnavailable = errors.New("remote unavailable")

// UnavailableError wraps a network, status or decoding failure of one remote
// call. Callers are expected to fall back to the local cache.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return "remote " + e.Op + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(op string, err error) error {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}
