package tsl2591

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGain            = errors.New("tsl2591: invalid gain")
	ErrInvalidIntegrationTime = errors.New("tsl2591: invalid integration time")
	ErrSaturated              = errors.New("tsl2591: sensor saturated")
	ErrMinimumSensitivity     = errors.New("tsl2591: already at minimum sensitivity")
)

// BusError is a failed transfer on the two-wire bus.
type BusError struct {
	Op      string // "write" or "read"
	Addr    byte
	Command byte
	Err     error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("tsl2591: bus %s 0x%02x cmd 0x%02x: %v", e.Op, e.Addr, e.Command, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// wrapBusError wraps err in a BusError unless it already is one.
func wrapBusError(op string, addr, cmd byte, err error) error {
	if err == nil {
		return nil
	}
	var be *BusError
	if errors.As(err, &be) {
		return err
	}
	return &BusError{Op: op, Addr: addr, Command: cmd, Err: err}
}

// SaturationError reports a channel count at or above the ceiling for the
// integration time in use. Reduce gain or integration time and sample again.
type SaturationError struct {
	Full     uint16
	IR       uint16
	MaxCount uint16
}

func (e *SaturationError) Error() string {
	return fmt.Sprintf("tsl2591: sensor saturated: full=%d ir=%d max=%d, adjust gain and/or integration time", e.Full, e.IR, e.MaxCount)
}

func (e *SaturationError) Is(target error) bool {
	return target == ErrSaturated
}
