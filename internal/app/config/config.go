package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/BCIDriver/Nurobuckle/internal/adapters/archive"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/cortex"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/locator"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/notify"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/places"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/simulator"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Device sources.
const (
	SourceCortex    = "cortex"
	SourceSimulator = "simulator"
	SourceReplay    = "replay"
)

const redacted = "***"

type Config struct {
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline"`
	Alert     AlertConfig     `mapstructure:"alert" yaml:"alert"`
	Location  locator.Config  `mapstructure:"location" yaml:"location"`
	Places    places.Config   `mapstructure:"places" yaml:"places"`
	Notify    notify.Config   `mapstructure:"notify" yaml:"notify"`
	Timescale TimescaleConfig `mapstructure:"timescale" yaml:"timescale"`
	Policy    ports.Policy    `mapstructure:"policy" yaml:"policy"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Archive   archive.Config  `mapstructure:"archive" yaml:"archive"`
}

type DeviceConfig struct {
	Source    string           `mapstructure:"source" yaml:"source"`
	Cortex    cortex.Config    `mapstructure:"cortex" yaml:"cortex"`
	Simulator simulator.Config `mapstructure:"simulator" yaml:"simulator"`
	Replay    ReplayConfig     `mapstructure:"replay" yaml:"replay"`
}

type ReplayConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	// Speed scales the original inter-sample gaps; 0 replays as fast as possible.
	Speed float64 `mapstructure:"speed" yaml:"speed"`
}

type PipelineConfig struct {
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
	Threshold       float64       `mapstructure:"threshold" yaml:"threshold"`
	HistoryCapacity int           `mapstructure:"history_capacity" yaml:"history_capacity"`
	LogInterval     time.Duration `mapstructure:"log_interval" yaml:"log_interval"`
	Buffer          int           `mapstructure:"buffer" yaml:"buffer"`
}

type AlertConfig struct {
	Contacts       []string      `mapstructure:"contacts" yaml:"contacts"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	QueueSize      int           `mapstructure:"queue_size" yaml:"queue_size"`
	NearbyCategory string        `mapstructure:"nearby_category" yaml:"nearby_category"`
	NearbyRadius   int           `mapstructure:"nearby_radius" yaml:"nearby_radius"`
	NearbyLimit    int           `mapstructure:"nearby_limit" yaml:"nearby_limit"`
	MessageNearby  int           `mapstructure:"message_nearby" yaml:"message_nearby"`
	PlanRoute      bool          `mapstructure:"plan_route" yaml:"plan_route"`
	// ShutdownGrace bounds how long shutdown waits for in-flight alerts.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

type TimescaleConfig struct {
	ConnString string `mapstructure:"conn_string" yaml:"conn_string"`
	Table      string `mapstructure:"table" yaml:"table"`
	AlertTable string `mapstructure:"alert_table" yaml:"alert_table"`
	// WriteTimeout bounds each insert so a stalled database cannot pin the ingest loop.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Enabled reports whether readings are persisted at all.
func (t TimescaleConfig) Enabled() bool { return t.ConnString != "" }

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	// HistoryLimit caps /api/history responses.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "console", "json"
}

type CaptureConfig struct {
	Path     string        `mapstructure:"path" yaml:"path"`
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`
	Archive  bool          `mapstructure:"archive" yaml:"archive"`
}

// Load reads path (optional) and the environment into a validated Config.
// Environment variables use the NURO_ prefix with "." replaced by "_", e.g.
// NURO_PIPELINE_THRESHOLD. Provider secrets also accept their usual names.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers the keys that are commonly overridden from the
// environment so AutomaticEnv can see them without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("device.source", SourceCortex)
	v.SetDefault("pipeline.interval", time.Second)
	v.SetDefault("pipeline.threshold", 8.0)
	v.SetDefault("pipeline.log_interval", 10*time.Second)
	v.SetDefault("alert.contacts", []string{})
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("timescale.conn_string", "")
	v.SetDefault("device.replay.path", "")
	v.SetDefault("capture.path", "./data/capture.log")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"notify.twilio.account_sid":   {"NURO_NOTIFY_TWILIO_ACCOUNT_SID", "TWILIO_ACCOUNT_SID"},
		"notify.twilio.auth_token":    {"NURO_NOTIFY_TWILIO_AUTH_TOKEN", "TWILIO_AUTH_TOKEN"},
		"notify.twilio.from":          {"NURO_NOTIFY_TWILIO_FROM", "TWILIO_PHONE_NUMBER"},
		"notify.telegram.token":       {"NURO_NOTIFY_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"},
		"location.token":              {"NURO_LOCATION_TOKEN", "IPINFO_TOKEN"},
		"places.api_key":              {"NURO_PLACES_API_KEY", "GOOGLE_API_KEY"},
		"device.cortex.client_id":     {"NURO_DEVICE_CORTEX_CLIENT_ID", "EMOTIV_CLIENT_ID"},
		"device.cortex.client_secret": {"NURO_DEVICE_CORTEX_CLIENT_SECRET", "EMOTIV_CLIENT_SECRET"},
		"archive.access_key":          {"NURO_ARCHIVE_ACCESS_KEY"},
		"archive.secret_key":          {"NURO_ARCHIVE_SECRET_KEY"},
		"location.redis.password":     {"NURO_LOCATION_REDIS_PASSWORD"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// ApplyDefaults fills every unset field. It is idempotent. Pipeline.Interval
// is the exception: zero turns debouncing off, and Load supplies the 1s
// default for configs that do not mention it.
func (c *Config) ApplyDefaults() {
	if c.Device.Source == "" {
		c.Device.Source = SourceCortex
	}
	c.Device.Cortex.ApplyDefaults()
	c.Device.Simulator.ApplyDefaults()

	if c.Pipeline.Threshold == 0 {
		c.Pipeline.Threshold = 8.0
	}
	if c.Pipeline.HistoryCapacity == 0 {
		c.Pipeline.HistoryCapacity = 480
	}
	if c.Pipeline.Buffer == 0 {
		c.Pipeline.Buffer = 64
	}

	if c.Alert.Timeout == 0 {
		c.Alert.Timeout = 30 * time.Second
	}
	if c.Alert.QueueSize == 0 {
		c.Alert.QueueSize = 4
	}
	if c.Alert.ShutdownGrace == 0 {
		c.Alert.ShutdownGrace = 5 * time.Second
	}

	c.Location.ApplyDefaults()
	c.Places.ApplyDefaults()

	if c.Timescale.Table == "" {
		c.Timescale.Table = "attention_readings"
	}
	if c.Timescale.AlertTable == "" {
		c.Timescale.AlertTable = "fatigue_alerts"
	}
	if c.Timescale.WriteTimeout <= 0 {
		c.Timescale.WriteTimeout = 10 * time.Second
	}

	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 50 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.HistoryLimit == 0 {
		c.HTTP.HistoryLimit = 480
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.Capture.Path == "" {
		c.Capture.Path = "./data/capture.log"
	}
	if c.Capture.Duration == 0 {
		c.Capture.Duration = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	switch c.Device.Source {
	case SourceCortex:
		if err := c.Device.Cortex.Validate(); err != nil {
			return fmt.Errorf("device.cortex: %w", err)
		}
	case SourceSimulator:
	case SourceReplay:
		if c.Device.Replay.Path == "" {
			return errors.New("device.replay.path is required for the replay source")
		}
	default:
		return fmt.Errorf("device.source %q is not one of cortex, simulator, replay", c.Device.Source)
	}

	if c.Pipeline.Interval < 0 {
		return fmt.Errorf("pipeline.interval must not be negative, got %s", c.Pipeline.Interval)
	}
	if c.Pipeline.Threshold <= 0 || c.Pipeline.Threshold > 10 {
		return fmt.Errorf("pipeline.threshold must be in (0, 10], got %g", c.Pipeline.Threshold)
	}
	if c.Pipeline.HistoryCapacity < 0 {
		return fmt.Errorf("pipeline.history_capacity must not be negative")
	}

	if err := c.Location.Validate(); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if err := c.Places.Validate(); err != nil {
		return fmt.Errorf("places: %w", err)
	}

	switch c.Policy.OnQueueFull {
	case "drop", "block":
	default:
		return fmt.Errorf("policy.on_queue_full %q is not one of drop, block", c.Policy.OnQueueFull)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}

	if c.Capture.Archive && !c.Archive.Enabled() {
		return errors.New("capture.archive requires archive.endpoint and archive.bucket")
	}
	return nil
}

// Redacted returns a copy with every secret masked.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Device.Cortex.ClientSecret)
	mask(&c.Device.Cortex.License)
	mask(&c.Location.Token)
	mask(&c.Location.Redis.Password)
	mask(&c.Places.APIKey)
	mask(&c.Notify.Twilio.AuthToken)
	mask(&c.Notify.Telegram.Token)
	mask(&c.Timescale.ConnString)
	mask(&c.Archive.SecretKey)
	return c
}

// Dump renders the redacted effective configuration as YAML.
func (c Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	return out, nil
}
