package faxlog

import (
	"strconv"
	"strings"
)

// RowValidator combines the independent field rules into a per-record
// verdict. Checks run in a fixed order (mode, phone, pages, timestamp)
// and every failed check contributes its reason; no check blocks the
// rest. No I/O, no side effects.
type RowValidator struct {
	phoneRules []PhoneRule
}

// NewRowValidator builds a validator with the default rule set plus any
// extra phone rules appended after the fixed ones.
func NewRowValidator(extraPhoneRules ...PhoneRule) *RowValidator {
	return &RowValidator{phoneRules: extraPhoneRules}
}

// Validate runs every enabled check against one record. The record's
// normalized phone is recomputed from the raw value, never trusted from
// storage.
func (v *RowValidator) Validate(rec *NormalizedRecord) Verdict {
	var errs []ErrorReason

	if _, ok := ParseMode(rec.ModeRaw); !ok {
		errs = append(errs, ReasonBadMode)
	}

	normalized := NormalizePhone(rec.PhoneRaw)
	if ok, reason := ValidatePhone(normalized, v.phoneRules...); !ok {
		errs = append(errs, reason)
	}

	if !validPages(rec.PagesRaw) {
		errs = append(errs, ReasonBadPageCount)
	}

	if rec.Timestamp == nil {
		errs = append(errs, ReasonMissingTimestamp)
	}

	return Verdict{Valid: len(errs) == 0, Errors: errs}
}

// validPages requires the raw page count to parse as an integer >= 1.
// Zero pages is a failure: a completed transmission always carries at
// least one page.
func validPages(raw string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	return err == nil && n >= 1
}
