package analysis

import "math"

const (
	defaultSigma         = 2.0
	defaultDominantShare = 0.20
	minSeriesDays        = 3
)

// Detector runs the statistical pass over a computed Statistics value.
// Sigma scales the failure-spike threshold (mean + Sigma * stddev over
// per-day error counts); DominantShare is the fraction of failed rows a
// single error reason must strictly exceed to be flagged.
type Detector struct {
	Sigma         float64
	DominantShare float64
}

func NewDetector() *Detector {
	return &Detector{Sigma: defaultSigma, DominantShare: defaultDominantShare}
}

// Detect computes both anomaly signals. With fewer than three distinct
// day buckets the sample is too small and both fields stay absent; the
// two rules are otherwise independent.
func (d *Detector) Detect(stats *Statistics) AnomalyFinding {
	var finding AnomalyFinding
	if len(stats.TimeSeries) < minSeriesDays {
		return finding
	}

	finding.FailureSpike = d.failureSpike(stats.TimeSeries)
	finding.DominantError = d.dominantError(stats.ErrorReasons, stats.Errors)
	return finding
}

// failureSpike returns the chronologically first bucket whose error
// count strictly exceeds mean + Sigma * stddev (population stddev).
func (d *Detector) failureSpike(series []DayBucket) *DayBucket {
	sum := 0.0
	for _, b := range series {
		sum += float64(b.Errors)
	}
	mean := sum / float64(len(series))

	sumSquares := 0.0
	for _, b := range series {
		diff := float64(b.Errors) - mean
		sumSquares += diff * diff
	}
	stdDev := math.Sqrt(sumSquares / float64(len(series)))

	threshold := mean + d.Sigma*stdDev
	for i := range series {
		if float64(series[i].Errors) > threshold {
			spike := series[i]
			return &spike
		}
	}
	return nil
}

// dominantError picks the most frequent raw error reason when its share
// of all failed rows strictly exceeds DominantShare. The tally is
// already ordered most-frequent-first, so the first qualifying entry
// wins ties.
func (d *Detector) dominantError(reasons []ReasonCount, failedTotal int) *DominantError {
	if failedTotal == 0 || len(reasons) == 0 {
		return nil
	}
	// The tally is sorted descending, so only the top entry can qualify.
	top := reasons[0]
	share := float64(top.Count) / float64(failedTotal)
	if share > d.DominantShare {
		return &DominantError{Reason: top.Reason, Ratio: round2(share * 100)}
	}
	return nil
}
