package host

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrProtocolTimeout indicates an expected handshake response never came.
	ErrProtocolTimeout = errors.New("protocol timeout")
	// ErrDeviceStopped indicates the device sent the stopping notice.
	ErrDeviceStopped = errors.New("device signalled stop")
	// ErrUnknownDevice indicates no configured port has the identity.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNotConfigured indicates the Factory hasn't been configured.
	ErrNotConfigured = errors.New("factory not configured")
	// ErrNoAddresses indicates no candidate serial port was found.
	ErrNoAddresses = errors.New("no serial port addresses found")
)

// ProtocolError describes a failed handshake step.
type ProtocolError struct {
	Address string
	Ask     string
	Header  string
	Timeout time.Duration
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Ask != "" {
		return fmt.Sprintf("%s: no response to %q after %s", e.Address, e.Ask, e.Timeout)
	}
	return fmt.Sprintf("%s: no %q packet after %s", e.Address, e.Header, e.Timeout)
}

// Is makes errors.Is(err, ErrProtocolTimeout) hold.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolTimeout
}
