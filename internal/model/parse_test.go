package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawEvent(t *testing.T) {
	payload := []byte(`{
		"barcode": "BC-1001",
		"machine_id": "machine-07",
		"product_id": "widget-a",
		"measured_value": 92.4,
		"timestamp": "2026-08-29T10:15:00Z"
	}`)

	ev, err := ParseRawEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "BC-1001", ev.Barcode)
	assert.Equal(t, "machine-07", ev.MachineID)
	assert.Equal(t, "widget-a", ev.ProductID)
	assert.InDelta(t, 92.4, float64(ev.MeasuredValue), 1e-9)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC), ev.EventTime)
}

func TestParseRawEventStringMeasuredValue(t *testing.T) {
	payload := []byte(`{"barcode":"b","machine_id":"m","product_id":"p","measured_value":"81.5","timestamp":"2026-08-29T10:15:00Z"}`)

	ev, err := ParseRawEvent(payload)
	require.NoError(t, err)
	assert.InDelta(t, 81.5, float64(ev.MeasuredValue), 1e-9)
}

func TestParseRawEventMissingMeasuredValueDefaultsToZero(t *testing.T) {
	payload := []byte(`{"barcode":"b","machine_id":"m","product_id":"p","timestamp":"2026-08-29T10:15:00Z"}`)

	ev, err := ParseRawEvent(payload)
	require.NoError(t, err)
	assert.Zero(t, float64(ev.MeasuredValue))
}

func TestParseRawEventNaiveTimestamp(t *testing.T) {
	payload := []byte(`{"barcode":"b","machine_id":"m","product_id":"p","measured_value":1,"timestamp":"2026-08-29T10:15:00.123456"}`)

	ev, err := ParseRawEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ev.EventTime.Location())
	assert.Equal(t, 2026, ev.EventTime.Year())
}

func TestParseRawEventRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"not json", `{{{`, "payload"},
		{"missing barcode", `{"machine_id":"m","product_id":"p","measured_value":1,"timestamp":"2026-08-29T10:15:00Z"}`, "barcode"},
		{"empty barcode", `{"barcode":"","machine_id":"m","product_id":"p","measured_value":1,"timestamp":"2026-08-29T10:15:00Z"}`, "barcode"},
		{"missing machine_id", `{"barcode":"b","product_id":"p","measured_value":1,"timestamp":"2026-08-29T10:15:00Z"}`, "machine_id"},
		{"missing product_id", `{"barcode":"b","machine_id":"m","measured_value":1,"timestamp":"2026-08-29T10:15:00Z"}`, "product_id"},
		{"missing timestamp", `{"barcode":"b","machine_id":"m","product_id":"p","measured_value":1}`, "timestamp"},
		{"garbage timestamp", `{"barcode":"b","machine_id":"m","product_id":"p","measured_value":1,"timestamp":"yesterday"}`, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawEvent([]byte(tt.payload))
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.field, perr.Field)
		})
	}
}

func TestStatusUnmarshalClosedEnum(t *testing.T) {
	var s Status
	require.NoError(t, s.UnmarshalJSON([]byte(`"PASS"`)))
	assert.Equal(t, StatusPass, s)

	require.NoError(t, s.UnmarshalJSON([]byte(`"FAIL"`)))
	assert.Equal(t, StatusFail, s)

	assert.Error(t, s.UnmarshalJSON([]byte(`"pass"`)))
	assert.Error(t, s.UnmarshalJSON([]byte(`"UNKNOWN"`)))
	assert.Error(t, s.UnmarshalJSON([]byte(`42`)))
}

func TestNewEnvelope(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC)
	env := NewEnvelope(StoredResult{
		ID:            7,
		Barcode:       "BC-1",
		MachineID:     "m-1",
		ProductID:     "p-1",
		MeasuredValue: 85.5,
		Status:        StatusPass,
		Timestamp:     ts,
	})

	assert.Equal(t, "BC-1", env.Barcode)
	assert.Equal(t, StatusPass, env.Status)
	assert.Equal(t, "2026-08-29T10:15:00Z", env.Timestamp)
}
