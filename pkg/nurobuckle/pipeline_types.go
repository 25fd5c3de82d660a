package nurobuckle

import (
	"github.com/BCIDriver/Nurobuckle/internal/app/pipeline"
	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Sample is one device metric tick as delivered by a Collector.
type Sample = domain.Sample

// Reading is an accepted, classified attention score.
type Reading = domain.Reading

type (
	Score       = domain.Score
	Status      = domain.Status
	Alert       = domain.Alert
	AlertResult = domain.AlertResult
	ActionError = domain.ActionError
	Location    = domain.Location
	Coordinate  = domain.Coordinate
	POI         = domain.POI
	Ack         = domain.Ack
)

const (
	StatusNormal = domain.StatusNormal
	StatusLow    = domain.StatusLow
)

// Outcome describes what the pipeline did with one sample.
type Outcome = pipeline.Outcome

// Decision is the trigger's reaction to an accepted reading.
type Decision = pipeline.Decision

// Collector streams samples from a device (Cortex, replay, simulator, push).
type Collector = ports.Collector

// Sink persists batches of accepted readings.
type Sink = ports.Sink

// AlertSink is implemented by sinks that also keep an alert log.
type AlertSink = ports.AlertSink

// ReadingQueue is the bounded queue between the pipeline and the sink.
type ReadingQueue = ports.ReadingQueue

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// ActionAdapter is the boundary the alert sequence calls into.
type ActionAdapter = ports.ActionAdapter

// RoutePlanner is optionally implemented by an ActionAdapter.
type RoutePlanner = ports.RoutePlanner

// AlertAction runs the whole alert sequence for one alert.
type AlertAction = ports.AlertAction

// Recorder captures raw samples for later replay.
type Recorder = ports.Recorder
