package locator

import (
	"fmt"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

const (
	ProviderIPInfo = "ipinfo"
	ProviderIPAPI  = "ipapi"
	ProviderStatic = "static"
)

type Config struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Token is the ipinfo.io access token; requests go out unauthenticated without it.
	Token    string            `mapstructure:"token" yaml:"token"`
	BaseURL  string            `mapstructure:"base_url" yaml:"base_url"`
	Timeout  time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL time.Duration     `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	Static   domain.Coordinate `mapstructure:"static" yaml:"static"`
	Redis    RedisConfig       `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig enables the shared location cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Key      string `mapstructure:"key" yaml:"key"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderIPInfo
	}
	if c.BaseURL == "" {
		switch c.Provider {
		case ProviderIPInfo:
			c.BaseURL = "https://ipinfo.io"
		case ProviderIPAPI:
			c.BaseURL = "https://ipapi.co"
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "nurobuckle:location"
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderIPInfo, ProviderIPAPI, ProviderStatic:
	default:
		return fmt.Errorf("provider %q is not one of ipinfo, ipapi, static", c.Provider)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	return nil
}
