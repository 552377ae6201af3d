package model

import (
	"time"
)

// RawEvent is the wire payload consumed from the ingestion topic. It is
// transient: after evaluation it is projected into a StoredResult and never
// kept in this form.
type RawEvent struct {
	Barcode       string        `json:"barcode"`
	MachineID     string        `json:"machine_id"`
	ProductID     string        `json:"product_id"`
	MeasuredValue StringFloat64 `json:"measured_value"`
	Timestamp     string        `json:"timestamp"`

	// EventTime is the parsed Timestamp, populated by ParseRawEvent.
	EventTime time.Time `json:"-"`
}

// StoredResult is an evaluated test result as persisted. Rows are immutable
// once written; the ingest pipeline is the only writer.
type StoredResult struct {
	ID            int64     `json:"id"`
	Barcode       string    `json:"barcode"`
	MachineID     string    `json:"machine_id"`
	ProductID     string    `json:"product_id"`
	MeasuredValue float64   `json:"measured_value"`
	Status        Status    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// Envelope is the flattened projection of a StoredResult republished on the
// processed-results topic and pushed to live subscribers. Wire only, never
// persisted.
type Envelope struct {
	Barcode       string  `json:"barcode"`
	MachineID     string  `json:"machine_id"`
	ProductID     string  `json:"product_id"`
	MeasuredValue float64 `json:"measured_value"`
	Status        Status  `json:"status"`
	Timestamp     string  `json:"timestamp"`
}

// NewEnvelope projects a persisted result into its wire form.
func NewEnvelope(r StoredResult) Envelope {
	return Envelope{
		Barcode:       r.Barcode,
		MachineID:     r.MachineID,
		ProductID:     r.ProductID,
		MeasuredValue: r.MeasuredValue,
		Status:        r.Status,
		Timestamp:     r.Timestamp.Format(time.RFC3339),
	}
}
