package closure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDiagnosticHalt is returned by Correct after the turbulence budget
	// has been written. It is a requested stop, not a failure.
	ErrDiagnosticHalt = errors.New("turbulence budget written, halting")
	// ErrTerminated is returned by Correct once the controller has halted
	ErrTerminated = errors.New("closure controller has halted")
)

// ConfigError is a missing or unusable configuration key or required field
type ConfigError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("turbulence configuration %q: %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// HaltError carries the diagnostic fields written before the halt
type HaltError struct {
	Time   string
	Fields []string
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("%s at time %s [%s]", ErrDiagnosticHalt.Error(), e.Time, strings.Join(e.Fields, " "))
}

func (e *HaltError) Unwrap() error { return ErrDiagnosticHalt }
