package analysis

import (
	"log"
	"math"
	"sort"

	"github.com/faxcloud/analyzer/internal/faxlog"
)

// RunContext tags one analysis run with pass-through labels. The engine
// never filters on them.
type RunContext struct {
	PeriodStart string
	PeriodEnd   string
	ContractID  string
}

// Engine validates every record and aggregates the full Statistics in a
// single pass. It holds no per-run state; one Engine can serve
// concurrent analyses on independent inputs.
type Engine struct {
	validator *faxlog.RowValidator
	detector  *Detector
}

func NewEngine(validator *faxlog.RowValidator, detector *Detector) *Engine {
	return &Engine{validator: validator, detector: detector}
}

// bucketFor groups individual error reasons into the human-facing
// breakdown buckets. Total: every reason maps somewhere, unknown ones
// land in "other".
func bucketFor(reason faxlog.ErrorReason) string {
	switch reason {
	case faxlog.ReasonEmpty:
		return "empty_number"
	case faxlog.ReasonNonNumeric:
		return "invalid_format"
	case faxlog.ReasonBadLength:
		return "bad_length"
	case faxlog.ReasonBadCountryCode:
		return "bad_prefix"
	case faxlog.ReasonBadPageCount:
		return "bad_pages"
	case faxlog.ReasonBadMode:
		return "bad_mode"
	case faxlog.ReasonMissingTimestamp:
		return "missing_timestamp"
	default:
		return "other"
	}
}

// Analyze runs the validator over every record and derives the
// aggregate Statistics plus anomaly findings. Deterministic: a fixed
// input sequence always yields an identical result.
func (e *Engine) Analyze(records []faxlog.NormalizedRecord, tag RunContext) *Result {
	stats := Statistics{
		ErrorBreakdown: make(map[string]int),
		PerUser:        make(map[string]UserStats),
		TimeSeries:     []DayBucket{},
		PeriodStart:    tag.PeriodStart,
		PeriodEnd:      tag.PeriodEnd,
		ContractID:     tag.ContractID,
	}

	reasonCounts := make(map[faxlog.ErrorReason]int)
	var reasonOrder []faxlog.ErrorReason
	buckets := make(map[string]*DayBucket)

	results := make([]RecordResult, 0, len(records))
	for i := range records {
		rec := &records[i]
		verdict := e.validator.Validate(rec)
		results = append(results, RecordResult{Record: *rec, Verdict: verdict})

		stats.Total++
		user := stats.PerUser[rec.User]

		var day *DayBucket
		if rec.Timestamp != nil {
			key := rec.Timestamp.Format("2006-01-02")
			day = buckets[key]
			if day == nil {
				day = &DayBucket{Date: key}
				buckets[key] = day
			}
			day.Total++
		}

		if verdict.Valid {
			switch rec.Mode {
			case faxlog.ModeSent:
				stats.Sent++
				stats.PagesSent += rec.Pages
				user.Sent++
				if day != nil {
					day.Sent++
				}
			case faxlog.ModeReceived:
				stats.Received++
				stats.PagesReceived += rec.Pages
				user.Received++
				if day != nil {
					day.Received++
				}
			}
			stats.PagesTotal += rec.Pages
			user.Pages += rec.Pages
		} else {
			stats.Errors++
			user.Errors++
			if day != nil {
				day.Errors++
			}
			for _, reason := range verdict.Errors {
				if reasonCounts[reason] == 0 {
					reasonOrder = append(reasonOrder, reason)
				}
				reasonCounts[reason]++
				stats.ErrorBreakdown[bucketFor(reason)]++
			}
		}
		stats.PerUser[rec.User] = user
	}

	if stats.Total > 0 {
		stats.SuccessRate = round2(100 * float64(stats.Total-stats.Errors) / float64(stats.Total))
	}

	// Most-frequent-first, ties keep encounter order.
	sort.SliceStable(reasonOrder, func(i, j int) bool {
		return reasonCounts[reasonOrder[i]] > reasonCounts[reasonOrder[j]]
	})
	stats.ErrorReasons = make([]ReasonCount, 0, len(reasonOrder))
	for _, reason := range reasonOrder {
		stats.ErrorReasons = append(stats.ErrorReasons, ReasonCount{Reason: reason, Count: reasonCounts[reason]})
	}

	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		stats.TimeSeries = append(stats.TimeSeries, *buckets[d])
	}

	anomalies := e.detector.Detect(&stats)

	log.Printf("[analysis] %d records, %d errors, %.1f%% success, %d day buckets",
		stats.Total, stats.Errors, stats.SuccessRate, len(stats.TimeSeries))

	return &Result{Statistics: stats, Anomalies: anomalies, Records: results}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
