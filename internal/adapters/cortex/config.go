package cortex

import (
	"errors"
	"time"
)

const DefaultURL = "wss://localhost:6868"

// Config holds the Emotiv Cortex application credentials and session options.
type Config struct {
	URL          string `mapstructure:"url" yaml:"url"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	License      string `mapstructure:"license" yaml:"license"`
	Debit        int    `mapstructure:"debit" yaml:"debit"`
	// HeadsetID selects a headset; empty picks the first connected one.
	HeadsetID string   `mapstructure:"headset_id" yaml:"headset_id"`
	Streams   []string `mapstructure:"streams" yaml:"streams"`
	// InsecureSkipVerify accepts the self-signed certificate of the local Cortex service.
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if len(c.Streams) == 0 {
		c.Streams = []string{"met"}
	}
	if c.Debit == 0 {
		c.Debit = 10
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("client_id and client_secret are required")
	}
	return nil
}
