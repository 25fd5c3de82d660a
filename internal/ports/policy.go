package ports

import "time"

// Policy bounds the persistence queue that sits between the pipeline and the sink.
type Policy struct {
	MaxQueueLen  int           `mapstructure:"max_queue_len" yaml:"max_queue_len"`
	MaxBatchSize int           `mapstructure:"max_batch_size" yaml:"max_batch_size"`
	IdleSleep    time.Duration `mapstructure:"idle_sleep" yaml:"idle_sleep"`

	OnQueueFull string `mapstructure:"on_queue_full" yaml:"on_queue_full"` // "drop", "block"
}
