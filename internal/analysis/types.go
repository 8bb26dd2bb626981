package analysis

import "github.com/faxcloud/analyzer/internal/faxlog"

// DayBucket is one calendar day's aggregate counters inside the time
// series. Date is the YYYY-MM-DD key; buckets are emitted in
// chronological order.
type DayBucket struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Sent     int    `json:"sent"`
	Received int    `json:"received"`
	Errors   int    `json:"errors"`
}

// UserStats aggregates one user's activity.
type UserStats struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
	Errors   int `json:"errors"`
	Pages    int `json:"pages"`
}

// ReasonCount is one entry of the raw error-reason tally, ordered
// most-frequent-first with ties broken by first encounter.
type ReasonCount struct {
	Reason faxlog.ErrorReason `json:"reason"`
	Count  int                `json:"count"`
}

// Statistics is the aggregate derived from one full record set. It is
// recomputed wholesale on every analysis run, never mutated
// incrementally.
type Statistics struct {
	Total       int     `json:"total"`
	Sent        int     `json:"sent"`
	Received    int     `json:"received"`
	Errors      int     `json:"errors"`
	SuccessRate float64 `json:"success_rate"`

	PagesSent     int `json:"pages_sent"`
	PagesReceived int `json:"pages_received"`
	PagesTotal    int `json:"pages_total"`

	ErrorBreakdown map[string]int       `json:"error_breakdown"`
	ErrorReasons   []ReasonCount        `json:"error_reasons"`
	PerUser        map[string]UserStats `json:"per_user"`
	TimeSeries     []DayBucket          `json:"time_series"`

	// Pass-through labels from the caller, not filters.
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
	ContractID  string `json:"contract_id,omitempty"`
}

// DominantError names the error reason responsible for more than the
// configured share of all failed rows.
type DominantError struct {
	Reason faxlog.ErrorReason `json:"reason"`
	Ratio  float64            `json:"ratio"`
}

// AnomalyFinding carries the optional failure-spike and dominant-error
// signals. Both fields are independently present or absent.
type AnomalyFinding struct {
	FailureSpike  *DayBucket     `json:"failure_spike,omitempty"`
	DominantError *DominantError `json:"dominant_error,omitempty"`
}

// RecordResult pairs one normalized record with its validation verdict.
type RecordResult struct {
	Record  faxlog.NormalizedRecord `json:"record"`
	Verdict faxlog.Verdict          `json:"verdict"`
}

// Result is the complete outcome of one analysis run, consumed
// read-only by the report writer, persistence and API layers.
type Result struct {
	Statistics Statistics     `json:"statistics"`
	Anomalies  AnomalyFinding `json:"anomalies"`
	Records    []RecordResult `json:"records"`
}
