package ports

import "github.com/BCIDriver/Nurobuckle/internal/domain"

type Sink interface {
	WriteBatch(readings []domain.Reading) error
	Name() string
}

// AlertSink is implemented by sinks that also keep an alert log.
type AlertSink interface {
	WriteAlert(res *domain.AlertResult) error
}
