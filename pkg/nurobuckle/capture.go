package nurobuckle

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/adapters/archive"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/observability"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/recorder"
)

// Upload describes a capture stored in the archive bucket.
type Upload = archive.Upload

// CaptureReport summarises one capture session.
type CaptureReport struct {
	Path    string
	Records uint64
	Upload  *Upload
}

// Capture records raw samples from the configured device into
// cfg.Capture.Path for cfg.Capture.Duration, or until ctx is done or the
// source runs dry. With cfg.Capture.Archive set, the finished file is
// uploaded to the archive bucket.
func Capture(ctx context.Context, cfg *Config, log zerolog.Logger) (*CaptureReport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()

	obs := observability.NewPromObs(prometheus.NewRegistry(), log)
	col, err := NewCollector(cfg, obs, log)
	if err != nil {
		return nil, err
	}

	rec, err := recorder.OpenFile(cfg.Capture.Path)
	if err != nil {
		return nil, err
	}

	capCtx, cancel := context.WithTimeout(ctx, cfg.Capture.Duration)
	defer cancel()

	n, err := recorder.Capture(capCtx, col, rec, cfg.Pipeline.Buffer)
	if cerr := rec.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close capture: %w", cerr)
	}
	if err != nil {
		return nil, err
	}
	report := &CaptureReport{Path: cfg.Capture.Path, Records: n}
	log.Info().Str("path", report.Path).Uint64("records", n).Msg("capture_finished")

	if !cfg.Capture.Archive {
		return report, nil
	}
	arch, err := archive.New(cfg.Archive)
	if err != nil {
		return report, err
	}
	up, err := arch.Upload(ctx, cfg.Capture.Path)
	if err != nil {
		return report, err
	}
	report.Upload = &up
	log.Info().Str("bucket", up.Bucket).Str("key", up.Key).Int64("size", up.Size).Msg("capture_archived")
	return report, nil
}
