package pipeline

import "github.com/BCIDriver/Nurobuckle/internal/domain"

// DefaultThreshold is the monitoring cutoff; scores strictly below it are LOW.
const DefaultThreshold = 8.0

type Classifier struct {
	Threshold float64
}

func (c Classifier) Classify(score domain.Score) domain.Status {
	if float64(score) < c.Threshold {
		return domain.StatusLow
	}
	return domain.StatusNormal
}
