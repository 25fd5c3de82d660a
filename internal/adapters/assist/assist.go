// Package assist implements ports.ActionAdapter on top of the location,
// places and notification providers.
package assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/BCIDriver/Nurobuckle/internal/adapters/places"
	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/geo"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

type Adapter struct {
	locator  ports.Locator
	finder   ports.PlaceFinder
	router   ports.Router
	notifier ports.Notifier
	cfg      places.Config
}

var (
	_ ports.ActionAdapter = (*Adapter)(nil)
	_ ports.RoutePlanner  = (*Adapter)(nil)
)

// New wires the providers. router may be nil when cfg.Mode is nearest.
func New(locator ports.Locator, finder ports.PlaceFinder, router ports.Router, notifier ports.Notifier, cfg places.Config) *Adapter {
	cfg.ApplyDefaults()
	return &Adapter{locator: locator, finder: finder, router: router, notifier: notifier, cfg: cfg}
}

func (a *Adapter) ResolveCurrentLocation(ctx context.Context) (domain.Location, error) {
	return a.locator.CurrentLocation(ctx)
}

// FindNearestAssistancePoint searches for a rest stop. In route mode the
// search is centred on the midpoint of the drive to the destination and the
// best rated result wins; otherwise it is centred on loc and the closest wins.
// A failed or empty route falls back to the nearest search.
func (a *Adapter) FindNearestAssistancePoint(ctx context.Context, loc domain.Location) (*domain.POI, error) {
	center := loc.Coordinate
	pick := a.closestTo(loc.Coordinate)
	var routeErr error

	if a.cfg.Mode == places.ModeRoute && a.cfg.Destination != nil && a.router != nil {
		route, err := a.router.Route(ctx, loc.Coordinate, *a.cfg.Destination, nil)
		if err != nil {
			routeErr = fmt.Errorf("route to destination: %w", err)
		} else if mid, ok := geo.Midpoint(route); ok {
			center = mid
			pick = bestRated
		}
	}

	found, err := a.finder.Nearby(ctx, ports.PlaceQuery{
		Center:       center,
		Type:         a.cfg.AssistType,
		RadiusMeters: a.cfg.AssistRadius,
	})
	if err != nil {
		return nil, errors.Join(routeErr, err)
	}
	if len(found) == 0 {
		return nil, routeErr
	}
	poi := pick(found)
	return &poi, nil
}

func (a *Adapter) FindNearbyPOIs(ctx context.Context, loc domain.Location, category string, radiusMeters int) ([]domain.POI, error) {
	return a.finder.Nearby(ctx, ports.PlaceQuery{
		Center:       loc.Coordinate,
		Keyword:      category,
		Type:         category,
		RadiusMeters: radiusMeters,
	})
}

func (a *Adapter) DispatchNotification(ctx context.Context, recipient, message string) (domain.Ack, error) {
	return a.notifier.Send(ctx, recipient, message)
}

// PlanRoute drives from origin to the destination through via. Without a
// destination, via itself is the end of the route.
func (a *Adapter) PlanRoute(ctx context.Context, origin domain.Coordinate, via *domain.Coordinate) ([]domain.Coordinate, error) {
	if a.router == nil {
		return nil, errors.New("no router configured")
	}
	if a.cfg.Destination == nil {
		if via == nil {
			return nil, errors.New("no destination for route")
		}
		return a.router.Route(ctx, origin, *via, nil)
	}
	return a.router.Route(ctx, origin, *a.cfg.Destination, via)
}

func bestRated(pois []domain.POI) domain.POI {
	best := pois[0]
	for _, p := range pois[1:] {
		if p.Rating > best.Rating {
			best = p
		}
	}
	return best
}

func (a *Adapter) closestTo(from domain.Coordinate) func([]domain.POI) domain.POI {
	return func(pois []domain.POI) domain.POI {
		best := pois[0]
		bestDist := geo.DistanceMiles(from, best.Location)
		for _, p := range pois[1:] {
			if d := geo.DistanceMiles(from, p.Location); d < bestDist {
				best, bestDist = p, d
			}
		}
		return best
	}
}
