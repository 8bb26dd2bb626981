package faxlog

import (
	"strings"
	"time"
)

// Mode is the transmission direction of one record.
type Mode string

const (
	ModeSent     Mode = "sent"
	ModeReceived Mode = "received"
	ModeUnknown  Mode = "unknown"
)

// Source files encode the direction as a two-letter code: SF (send fax)
// or RF (receive fax).
const (
	codeSent     = "SF"
	codeReceived = "RF"
)

func canonicalizeMode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParseMode maps the raw two-letter source code to a Mode. The second
// return value is false when the code is not one of the recognized ones.
func ParseMode(raw string) (Mode, bool) {
	switch canonicalizeMode(raw) {
	case codeSent:
		return ModeSent, true
	case codeReceived:
		return ModeReceived, true
	default:
		return ModeUnknown, false
	}
}

// ErrorReason is a member of the fixed vocabulary of validation failure
// causes. Downstream consumers map these to human-readable text; the
// pipeline itself never emits free-text error messages.
type ErrorReason string

const (
	ReasonEmpty            ErrorReason = "empty"
	ReasonNonNumeric       ErrorReason = "non_numeric"
	ReasonBadLength        ErrorReason = "bad_length"
	ReasonBadCountryCode   ErrorReason = "bad_country_code"
	ReasonBadPageCount     ErrorReason = "bad_page_count"
	ReasonBadMode          ErrorReason = "bad_mode"
	ReasonMissingTimestamp ErrorReason = "missing_timestamp"

	// ReasonRestrictedRange is only produced by the optional
	// RejectVoiceRange phone rule, never by the default rule set.
	ReasonRestrictedRange ErrorReason = "restricted_range"
)

// UnknownUser is the sentinel stored when the source row carries no user.
const UnknownUser = "unknown"

// NormalizedRecord is one transmission event after schema reconciliation
// and type coercion. Raw field values are kept alongside the coerced ones
// so that validation can report on what the source actually said.
type NormalizedRecord struct {
	TransmissionID  string     `json:"transmission_id,omitempty"`
	User            string     `json:"user"`
	Mode            Mode       `json:"mode"`
	ModeRaw         string     `json:"mode_raw,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	PhoneRaw        string     `json:"phone_raw"`
	PhoneNormalized string     `json:"phone_normalized"`
	Pages           int        `json:"pages"`
	PagesRaw        string     `json:"pages_raw,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
}

// Verdict is the per-record validation outcome. Valid is true iff Errors
// is empty.
type Verdict struct {
	Valid  bool          `json:"is_valid"`
	Errors []ErrorReason `json:"errors"`
}
