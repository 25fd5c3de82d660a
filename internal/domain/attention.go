package domain

import (
	"fmt"
	"strconv"
	"time"
)

// MaxScore is the upper bound of the attention scale.
const MaxScore = 10

// Score is attention on a 0-10 scale with two decimals.
type Score float64

func (s Score) String() string {
	return strconv.FormatFloat(float64(s), 'f', 2, 64)
}

// Status is the discrete attention class derived from a Score.
type Status int

const (
	StatusNormal Status = iota
	StatusLow
)

func (s Status) String() string {
	if s == StatusLow {
		return "LOW"
	}
	return "NORMAL"
}

// MarshalText renders the status as LOW/NORMAL in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LOW":
		*s = StatusLow
	case "NORMAL":
		*s = StatusNormal
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Reading is an accepted, classified score.
type Reading struct {
	Timestamp time.Time `json:"ts"`
	Score     Score     `json:"score"`
	Status    Status    `json:"status"`
	HeadsetID string    `json:"headset_id,omitempty"`
}
