package ports

import "github.com/BCIDriver/Nurobuckle/internal/domain"

type RecordID uint64

// Recorder is an append-only capture of raw device samples.
type Recorder interface {
	Append(s *domain.Sample) (RecordID, error)
	Iterate(from RecordID, fn func(id RecordID, s *domain.Sample) error) error
	Stats() RecorderStats
	Close() error
}

type RecorderStats struct {
	Records   uint64
	LatestID  RecordID
	SizeBytes int64
	Path      string
}
