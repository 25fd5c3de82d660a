package nurobuckle

import (
	"github.com/BCIDriver/Nurobuckle/internal/adapters/cortex"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/simulator"
	"github.com/BCIDriver/Nurobuckle/internal/app/config"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy bounds the persistence queue.
	Policy = ports.Policy
	// DeviceConfig selects and configures the sample source.
	DeviceConfig = config.DeviceConfig
	// CortexConfig configures the Emotiv Cortex connection.
	CortexConfig = cortex.Config
	// SimulatorConfig shapes the synthetic attention curve.
	SimulatorConfig = simulator.Config
	PipelineConfig  = config.PipelineConfig
	AlertConfig     = config.AlertConfig
	TimescaleConfig = config.TimescaleConfig
	HTTPConfig      = config.HTTPConfig
	LoggingConfig   = config.LoggingConfig
)

// Device sources accepted in DeviceConfig.Source.
const (
	SourceCortex    = config.SourceCortex
	SourceSimulator = config.SourceSimulator
	SourceReplay    = config.SourceReplay
)

// LoadConfig reads YAML from path (optional) plus NURO_* environment variables.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
