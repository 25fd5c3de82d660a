package domain

import (
	"errors"
	"fmt"
	"time"
)

// Positions inside the Cortex "met" vector used for attention ("foc").
const (
	MetFocusActiveIndex = 11
	MetFocusIndex       = 12
	MinMetVectorLen     = MetFocusIndex + 1
)

// ErrMalformedVector marks a device tick that cannot produce a Sample.
var ErrMalformedVector = errors.New("malformed metric vector")

// Sample is one device metric tick. It is never mutated after creation.
type Sample struct {
	HeadsetID string    `json:"headset_id,omitempty"`
	Timestamp time.Time `json:"ts"`
	Seq       uint64    `json:"seq"`
	Active    bool      `json:"active"`
	Raw       *float64  `json:"raw,omitempty"`
}

// NewSample builds an active sample carrying raw.
func NewSample(ts time.Time, raw float64) *Sample {
	return &Sample{Timestamp: ts, Active: true, Raw: &raw}
}

// RawValue returns the raw attention value and whether it is present.
func (s *Sample) RawValue() (float64, bool) {
	if s == nil || s.Raw == nil {
		return 0, false
	}
	return *s.Raw, true
}

// SampleFromVector converts a decoded "met" vector into a Sample.
// Index 11 carries the focus-active flag and index 12 the raw focus value.
func SampleFromVector(ts time.Time, vec []any) (*Sample, error) {
	if len(vec) < MinMetVectorLen {
		return nil, fmt.Errorf("%w: %d entries, need %d", ErrMalformedVector, len(vec), MinMetVectorLen)
	}

	active, ok := truthy(vec[MetFocusActiveIndex])
	if !ok {
		return nil, fmt.Errorf("%w: active flag %v", ErrMalformedVector, vec[MetFocusActiveIndex])
	}

	s := &Sample{Timestamp: ts, Active: active}
	switch v := vec[MetFocusIndex].(type) {
	case nil:
	case float64:
		s.Raw = &v
	case float32:
		f := float64(v)
		s.Raw = &f
	case int:
		f := float64(v)
		s.Raw = &f
	default:
		return nil, fmt.Errorf("%w: focus value %T", ErrMalformedVector, v)
	}
	return s, nil
}

func truthy(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	default:
		return false, false
	}
}
