package ports

import (
	"context"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// ActionAdapter is the boundary the alert sequence calls into. Every call may
// fail on its own; callers record failures and keep going.
type ActionAdapter interface {
	ResolveCurrentLocation(ctx context.Context) (domain.Location, error)
	// FindNearestAssistancePoint returns nil, nil when nothing suitable exists.
	FindNearestAssistancePoint(ctx context.Context, loc domain.Location) (*domain.POI, error)
	FindNearbyPOIs(ctx context.Context, loc domain.Location, category string, radiusMeters int) ([]domain.POI, error)
	DispatchNotification(ctx context.Context, recipient, message string) (domain.Ack, error)
}

// RoutePlanner is optionally implemented by an ActionAdapter to draw the
// route through the chosen assistance point.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, origin domain.Coordinate, via *domain.Coordinate) ([]domain.Coordinate, error)
}

// AlertAction runs the whole side-effecting alert sequence.
type AlertAction interface {
	Fire(ctx context.Context, alert domain.Alert) *domain.AlertResult
}

type Locator interface {
	CurrentLocation(ctx context.Context) (domain.Location, error)
}

type PlaceQuery struct {
	Center       domain.Coordinate
	Keyword      string
	Type         string
	RadiusMeters int
}

type PlaceFinder interface {
	Nearby(ctx context.Context, q PlaceQuery) ([]domain.POI, error)
}

type Router interface {
	Route(ctx context.Context, origin, destination domain.Coordinate, waypoint *domain.Coordinate) ([]domain.Coordinate, error)
}

type Notifier interface {
	Send(ctx context.Context, recipient, body string) (domain.Ack, error)
	Name() string
}
