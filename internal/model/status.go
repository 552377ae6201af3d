package model

import (
	"fmt"
)

// Status is the pass/fail verdict of a test result. It is a closed enum:
// only the two literal wire strings below are valid, and deserialization
// rejects anything else at the boundary.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Valid reports whether s is one of the two known verdicts.
func (s Status) Valid() bool {
	return s == StatusPass || s == StatusFail
}

// UnmarshalJSON enforces the closed enum on the wire.
func (s *Status) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"PASS"`:
		*s = StatusPass
	case `"FAIL"`:
		*s = StatusFail
	default:
		return fmt.Errorf("status: unknown value %s", string(b))
	}
	return nil
}
