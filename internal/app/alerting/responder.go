// Package alerting runs the fatigue alert sequence: locate the driver, pick a
// rest stop, collect nearby restaurants, then notify every emergency contact.
package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/geo"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

const (
	DefaultNearbyCategory = "restaurant"
	DefaultNearbyRadius   = 1000
	DefaultNearbyLimit    = 5
	DefaultMessageNearby  = 3
)

type Options struct {
	Contacts       []string
	NearbyCategory string
	NearbyRadius   int
	NearbyLimit    int
	// MessageNearby is how many nearby places are listed in the message body.
	MessageNearby int
	PlanRoute     bool
}

func (o *Options) applyDefaults() {
	if o.NearbyCategory == "" {
		o.NearbyCategory = DefaultNearbyCategory
	}
	if o.NearbyRadius <= 0 {
		o.NearbyRadius = DefaultNearbyRadius
	}
	if o.NearbyLimit <= 0 {
		o.NearbyLimit = DefaultNearbyLimit
	}
	if o.MessageNearby <= 0 {
		o.MessageNearby = DefaultMessageNearby
	}
}

// Responder implements ports.AlertAction on top of an ActionAdapter. Every
// step runs even when an earlier one failed; the message is always sent with
// whatever was resolved.
type Responder struct {
	adapter ports.ActionAdapter
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

var _ ports.AlertAction = (*Responder)(nil)

func NewResponder(adapter ports.ActionAdapter, opts Options, log zerolog.Logger) *Responder {
	opts.applyDefaults()
	return &Responder{
		adapter: adapter,
		opts:    opts,
		log:     log.With().Str("component", "alerting").Logger(),
		now:     time.Now,
	}
}

func (r *Responder) Fire(ctx context.Context, alert domain.Alert) *domain.AlertResult {
	res := &domain.AlertResult{Alert: alert, Started: r.now()}

	r.locate(ctx, res)
	if res.Location != nil {
		r.assist(ctx, res)
	}
	if res.AssistancePoint != nil {
		r.nearby(ctx, res)
		r.route(ctx, res)
	}

	res.Message = ComposeMessage(res, r.opts.MessageNearby)
	r.notify(ctx, res)

	res.Finished = r.now()
	return res
}

func (r *Responder) locate(ctx context.Context, res *domain.AlertResult) {
	loc, err := r.adapter.ResolveCurrentLocation(ctx)
	if err != nil {
		res.AddError(domain.StepLocate, "resolve current location", err)
		return
	}
	res.Location = &loc
	r.log.Debug().Str("location", loc.String()).Str("city", loc.City).Msg("location_resolved")
}

func (r *Responder) assist(ctx context.Context, res *domain.AlertResult) {
	poi, err := r.adapter.FindNearestAssistancePoint(ctx, *res.Location)
	switch {
	case err != nil:
		res.AddError(domain.StepAssist, "find assistance point", err)
		return
	case poi == nil:
		res.AddError(domain.StepAssist, "no suitable assistance point found", nil)
		return
	}

	res.AssistancePoint = poi
	res.DistanceMiles = geo.DistanceMiles(res.Location.Coordinate, poi.Location)
	res.Direction = geo.Cardinal(geo.Bearing(res.Location.Coordinate, poi.Location))
	r.log.Debug().Str("name", poi.Name).Float64("miles", res.DistanceMiles).Str("direction", res.Direction).Msg("assistance_point_found")
}

func (r *Responder) nearby(ctx context.Context, res *domain.AlertResult) {
	center := domain.Location{Coordinate: res.AssistancePoint.Location}
	pois, err := r.adapter.FindNearbyPOIs(ctx, center, r.opts.NearbyCategory, r.opts.NearbyRadius)
	if err != nil {
		res.AddError(domain.StepNearby, "find nearby "+r.opts.NearbyCategory, err)
		return
	}
	if len(pois) == 0 {
		res.AddError(domain.StepNearby, "no nearby "+r.opts.NearbyCategory+" found", nil)
		return
	}
	if len(pois) > r.opts.NearbyLimit {
		pois = pois[:r.opts.NearbyLimit]
	}
	res.Nearby = pois
}

func (r *Responder) route(ctx context.Context, res *domain.AlertResult) {
	if !r.opts.PlanRoute {
		return
	}
	planner, ok := r.adapter.(ports.RoutePlanner)
	if !ok {
		return
	}
	via := res.AssistancePoint.Location
	route, err := planner.PlanRoute(ctx, res.Location.Coordinate, &via)
	if err != nil {
		res.AddError(domain.StepRoute, "plan route through assistance point", err)
		return
	}
	res.Route = route
}

func (r *Responder) notify(ctx context.Context, res *domain.AlertResult) {
	if len(r.opts.Contacts) == 0 {
		res.AddError(domain.StepNotify, "no emergency contacts configured", nil)
		return
	}

	for _, contact := range r.opts.Contacts {
		ack, err := r.adapter.DispatchNotification(ctx, contact, res.Message)
		if err != nil {
			res.AddError(domain.StepNotify, "send to "+contact, err)
			res.Deliveries = append(res.Deliveries, domain.Delivery{Recipient: contact, Error: err.Error()})
			continue
		}
		res.Deliveries = append(res.Deliveries, domain.Delivery{Recipient: contact, Ack: &ack})
	}
}
