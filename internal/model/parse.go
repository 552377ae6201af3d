package model

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseError marks a payload as structurally invalid. Messages failing with
// a ParseError are rejected permanently, never requeued.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: missing or empty", e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

// timestamp layouts accepted on the wire: RFC3339 with offset, or a naive
// ISO-8601 instant treated as UTC. Fractional seconds are accepted either way.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseRawEvent decodes and validates an ingestion payload. barcode,
// machine_id, product_id and timestamp are required; measured_value defaults
// to 0.0 when absent, per the upstream producer contract.
func ParseRawEvent(payload []byte) (RawEvent, error) {
	var ev RawEvent
	if err := jsonStd.Unmarshal(payload, &ev); err != nil {
		return RawEvent{}, &ParseError{Field: "payload", Err: err}
	}

	if ev.Barcode == "" {
		return RawEvent{}, &ParseError{Field: "barcode"}
	}
	if ev.MachineID == "" {
		return RawEvent{}, &ParseError{Field: "machine_id"}
	}
	if ev.ProductID == "" {
		return RawEvent{}, &ParseError{Field: "product_id"}
	}
	if ev.Timestamp == "" {
		return RawEvent{}, &ParseError{Field: "timestamp"}
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, ev.Timestamp)
		if err == nil {
			ev.EventTime = t.UTC()
			return ev, nil
		}
		lastErr = err
	}
	return RawEvent{}, &ParseError{Field: "timestamp", Err: lastErr}
}
