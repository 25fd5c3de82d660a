// Package simulator produces a synthetic attention stream for demos and
// headless runs without a headset.
package simulator

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

type Config struct {
	Rate      time.Duration `mapstructure:"rate" yaml:"rate"`
	Period    time.Duration `mapstructure:"period" yaml:"period"`
	Baseline  float64       `mapstructure:"baseline" yaml:"baseline"`
	Amplitude float64       `mapstructure:"amplitude" yaml:"amplitude"`
	Noise     float64       `mapstructure:"noise" yaml:"noise"`
	Seed      int64         `mapstructure:"seed" yaml:"seed"`
	// Limit stops the stream after this many samples; 0 runs until Stop.
	Limit int `mapstructure:"limit" yaml:"limit"`
}

func (c *Config) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 500 * time.Millisecond
	}
	if c.Period <= 0 {
		c.Period = 2 * time.Minute
	}
	if c.Baseline == 0 {
		c.Baseline = 0.72
	}
	if c.Amplitude == 0 {
		c.Amplitude = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

// Collector emits samples following baseline + amplitude*sin(2*pi*t/period)
// plus gaussian noise. Values may leave [0,1] like a real headset does.
type Collector struct {
	cfg   Config
	start time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Collector = (*Collector)(nil)

func NewCollector(cfg Config) *Collector {
	cfg.ApplyDefaults()
	return &Collector{cfg: cfg}
}

func (c *Collector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return errors.New("simulator already started")
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.start = time.Now()

	go c.run(out, c.stop, c.done)
	return nil
}

func (c *Collector) run(out chan<- *domain.Sample, stop, done chan struct{}) {
	defer close(done)
	defer close(out)

	rng := rand.New(rand.NewSource(c.cfg.Seed))
	ticker := time.NewTicker(c.cfg.Rate)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			seq++
			s := domain.NewSample(now, c.value(now.Sub(c.start), rng))
			s.Seq = seq
			s.HeadsetID = "simulator"
			select {
			case out <- s:
			case <-stop:
				return
			}
			if c.cfg.Limit > 0 && seq >= uint64(c.cfg.Limit) {
				return
			}
		}
	}
}

func (c *Collector) value(elapsed time.Duration, rng *rand.Rand) float64 {
	phase := 2 * math.Pi * elapsed.Seconds() / c.cfg.Period.Seconds()
	v := c.cfg.Baseline + c.cfg.Amplitude*math.Sin(phase)
	if c.cfg.Noise > 0 {
		v += rng.NormFloat64() * c.cfg.Noise
	}
	return v
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.mu.Unlock()
	if stop == nil {
		return nil
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done
	return nil
}
