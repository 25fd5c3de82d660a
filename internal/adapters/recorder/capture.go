package recorder

import (
	"context"
	"fmt"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Capture records every sample from col into rec until ctx is done or the
// collector closes its stream. It returns the number of records written.
func Capture(ctx context.Context, col ports.Collector, rec ports.Recorder, buffer int) (uint64, error) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *domain.Sample, buffer)
	if err := col.Start(ch); err != nil {
		return 0, fmt.Errorf("start collector: %w", err)
	}

	var n uint64
	for {
		select {
		case <-ctx.Done():
			if err := col.Stop(); err != nil {
				return n, fmt.Errorf("stop collector: %w", err)
			}
			return n, nil
		case s, ok := <-ch:
			if !ok {
				return n, nil
			}
			if s == nil {
				continue
			}
			if _, err := rec.Append(s); err != nil {
				return n, fmt.Errorf("append record %d: %w", n+1, err)
			}
			n++
		}
	}
}
