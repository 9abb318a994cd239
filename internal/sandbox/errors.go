package sandbox

import (
	"errors"
	"fmt"
	"time"
)

// ErrDisabled is returned when the sandbox is disabled in configuration.
var ErrDisabled = errors.New("sandbox is disabled in configuration")

// ErrNotStarted is returned when Execute is called on a backend that has
// not been started or has already failed.
type ErrNotStarted struct {
	Key string
}

func (e ErrNotStarted) Error() string {
	return fmt.Sprintf("sandbox %q is not started", e.Key)
}

// ErrUnsupportedBackend is returned when the configured backend name is
// not in the registry. This is a startup-fatal condition.
type ErrUnsupportedBackend struct {
	Name string
}

func (e ErrUnsupportedBackend) Error() string {
	return fmt.Sprintf("unsupported sandbox backend %q", e.Name)
}

// ErrProtocol is returned when the sandbox child sends a malformed or
// unexpected message. The instance is marked unhealthy.
type ErrProtocol struct {
	Key    string
	Detail string
}

func (e ErrProtocol) Error() string {
	return fmt.Sprintf("sandbox %q protocol error: %s", e.Key, e.Detail)
}

// ErrExecTimeout is returned when the child does not answer an execute
// request within its budget. The instance stays usable if the child is
// still healthy.
type ErrExecTimeout struct {
	Key     string
	Timeout time.Duration
}

func (e ErrExecTimeout) Error() string {
	return fmt.Sprintf("sandbox %q: command timeout after %v", e.Key, e.Timeout)
}
