package clicker_client

import (
	"errors"
	"fmt"
)

// RemoteError means the server understood the request and rejected it.
type RemoteError struct {
	Op      Operation
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// TransportError means the call itself could not complete (network, status, decode).
type TransportError struct {
	Op  Operation
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err carries a server rejection.
func IsRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}

// IsTransport reports whether err is a failed call.
func IsTransport(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport)
}

// RemoteMessage returns the server's human-readable message, if err is a RemoteError.
func RemoteMessage(err error) (string, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message, true
	}
	return "", false
}
