package places

import (
	"fmt"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// ModeRoute searches around the midpoint of the route to Destination.
	ModeRoute = "route"
	// ModeNearest searches around the current location.
	ModeNearest = "nearest"
)

// DefaultDestination is Y Combinator, Palo Alto.
var DefaultDestination = domain.Coordinate{Lat: 37.4443, Lng: -122.1607}

type Config struct {
	APIKey       string             `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string             `mapstructure:"base_url" yaml:"base_url"`
	Mode         string             `mapstructure:"mode" yaml:"mode"`
	Destination  *domain.Coordinate `mapstructure:"destination" yaml:"destination"`
	AssistType   string             `mapstructure:"assist_type" yaml:"assist_type"`
	AssistRadius int                `mapstructure:"assist_radius" yaml:"assist_radius"`
	Timeout      time.Duration      `mapstructure:"timeout" yaml:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Mode == "" {
		c.Mode = ModeRoute
	}
	if c.Destination == nil && c.Mode == ModeRoute {
		d := DefaultDestination
		c.Destination = &d
	}
	if c.AssistType == "" {
		c.AssistType = "gas_station"
	}
	if c.AssistRadius <= 0 {
		c.AssistRadius = 2000
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRoute, ModeNearest:
	default:
		return fmt.Errorf("mode %q is not one of route, nearest", c.Mode)
	}
	if c.AssistRadius > 50000 {
		return fmt.Errorf("assist_radius %d exceeds the 50000 m search limit", c.AssistRadius)
	}
	return nil
}
