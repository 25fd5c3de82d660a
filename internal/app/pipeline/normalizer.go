package pipeline

import (
	"math"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// Normalize turns a raw fractional focus value into a 0-10 score rounded to
// two decimals. ok is false when the channel is inactive or the value absent.
// outOfRange reports a pre-clamp value outside [0,1]; the score is still usable.
func Normalize(s *domain.Sample) (score domain.Score, ok bool, outOfRange bool) {
	if s == nil || !s.Active {
		return 0, false, false
	}
	raw, present := s.RawValue()
	if !present || math.IsNaN(raw) {
		return 0, false, false
	}

	outOfRange = raw < 0 || raw > 1
	clamped := math.Min(math.Max(raw, 0), 1)
	return domain.Score(math.RoundToEven(clamped*domain.MaxScore*100) / 100), true, outOfRange
}
