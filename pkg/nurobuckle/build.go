package nurobuckle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/adapters/assist"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/cortex"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/locator"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/notify"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/places"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/recorder"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/simulator"
	"github.com/BCIDriver/Nurobuckle/internal/app/alerting"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// NewCollector builds the collector selected by cfg.Device.Source.
func NewCollector(cfg *Config, obs Observability, log zerolog.Logger) (Collector, error) {
	switch cfg.Device.Source {
	case SourceCortex:
		col, err := cortex.NewCollector(cfg.Device.Cortex, obs, log)
		if err != nil {
			return nil, err
		}
		return col, nil
	case SourceSimulator:
		return simulator.NewCollector(cfg.Device.Simulator), nil
	case SourceReplay:
		return recorder.NewReplayCollector(cfg.Device.Replay.Path, cfg.Device.Replay.Speed), nil
	default:
		return nil, fmt.Errorf("unknown device source %q", cfg.Device.Source)
	}
}

// NewActionAdapter wires the default providers: IP geolocation behind a
// cache, Google Places and Directions, and the notification router. The
// returned closers release the Redis connection when one was opened.
func NewActionAdapter(ctx context.Context, cfg *Config, log zerolog.Logger) (ActionAdapter, []func() error, error) {
	var (
		store   locator.Store = locator.NewMemoryStore()
		closers []func() error
	)
	if cfg.Location.Redis.Addr != "" {
		rdb, err := locator.DialRedis(ctx, cfg.Location.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("location cache: %w", err)
		}
		closers = append(closers, rdb.Close)
		store = locator.NewRedisStore(rdb, cfg.Location.Redis.Key)
	}
	loc := locator.NewCache(locator.New(cfg.Location, nil), store, cfg.Location.CacheTTL, log)

	maps := places.NewClient(cfg.Places, nil)

	notifier, err := notify.New(cfg.Notify, log)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, nil, fmt.Errorf("notifier: %w", err)
	}

	return assist.New(loc, maps, maps, notifier, cfg.Places), closers, nil
}

func newAlertAction(ctx context.Context, cfg *Config, o *runtimeOverrides, log zerolog.Logger) (ports.AlertAction, []func() error, error) {
	if o.action != nil {
		return o.action, nil, nil
	}

	adapter := o.adapter
	var closers []func() error
	if adapter == nil {
		var err error
		adapter, closers, err = NewActionAdapter(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
	}
	return alerting.NewResponder(adapter, alertOptions(cfg.Alert), log), closers, nil
}

func alertOptions(a AlertConfig) alerting.Options {
	return alerting.Options{
		Contacts:       a.Contacts,
		NearbyCategory: a.NearbyCategory,
		NearbyRadius:   a.NearbyRadius,
		NearbyLimit:    a.NearbyLimit,
		MessageNearby:  a.MessageNearby,
		PlanRoute:      a.PlanRoute,
	}
}
