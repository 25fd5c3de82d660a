package ports

import "github.com/BCIDriver/Nurobuckle/internal/domain"

// Collector streams device samples into the pipeline until Stop is called.
type Collector interface {
	Start(out chan<- *domain.Sample) error
	Stop() error
}
