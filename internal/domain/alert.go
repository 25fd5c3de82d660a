package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders "lat,lng" in plain decimal notation, as provider query
// parameters expect.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Location is where the driver is believed to be.
type Location struct {
	Coordinate
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// POI is a place returned by a places search.
type POI struct {
	Name     string     `json:"name"`
	Address  string     `json:"address,omitempty"`
	Rating   float64    `json:"rating,omitempty"`
	Location Coordinate `json:"location"`
	Types    []string   `json:"types,omitempty"`
}

// Ack is a provider receipt for a delivered notification.
type Ack struct {
	Channel string `json:"channel"`
	ID      string `json:"id"`
}

// Delivery records one notification attempt.
type Delivery struct {
	Recipient string `json:"recipient"`
	Ack       *Ack   `json:"ack,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Alert steps, used as ActionError.Step.
const (
	StepLocate   = "locate"
	StepAssist   = "assistance_point"
	StepNearby   = "nearby"
	StepRoute    = "route"
	StepNotify   = "notify"
	StepDispatch = "dispatch"
)

// ActionError is a collaborator failure captured during an alert.
type ActionError struct {
	Step   string
	Reason string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Reason, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Alert is the unit of work handed from the trigger to the dispatcher.
type Alert struct {
	Reading   Reading   `json:"reading"`
	Threshold float64   `json:"threshold"`
	Episode   uint64    `json:"episode"`
	Manual    bool      `json:"manual,omitempty"`
	Raised    time.Time `json:"raised"`
}

// AlertResult is everything the alert sequence produced, including partial failures.
type AlertResult struct {
	Alert           Alert          `json:"alert"`
	Location        *Location      `json:"location,omitempty"`
	AssistancePoint *POI           `json:"assistance_point,omitempty"`
	DistanceMiles   float64        `json:"distance_miles,omitempty"`
	Direction       string         `json:"direction,omitempty"`
	Nearby          []POI          `json:"nearby,omitempty"`
	Route           []Coordinate   `json:"route,omitempty"`
	Message         string         `json:"message,omitempty"`
	Deliveries      []Delivery     `json:"deliveries,omitempty"`
	Errors          []*ActionError `json:"-"`
	Started         time.Time      `json:"started"`
	Finished        time.Time      `json:"finished"`
}

// AddError records a failed step.
func (r *AlertResult) AddError(step, reason string, err error) {
	r.Errors = append(r.Errors, &ActionError{Step: step, Reason: reason, Err: err})
}

// Failed reports whether any step failed or came back empty.
func (r *AlertResult) Failed() bool {
	return len(r.Errors) > 0
}

// Delivered counts acknowledged notifications.
func (r *AlertResult) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Ack != nil {
			n++
		}
	}
	return n
}

// ErrorStrings flattens Errors for logs and JSON payloads.
func (r *AlertResult) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}
