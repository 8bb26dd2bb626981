package faxlog

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"international with spaces", "+33 1 45 22 11 34", "33145221134"},
		{"national leading zero", "0145221134", "33145221134"},
		{"double zero prefix", "0033145221134", "33145221134"},
		{"already canonical", "33145221134", "33145221134"},
		{"dots and dashes", "01.45.22-11.34", "33145221134"},
		{"empty stays empty", "", ""},
		{"letters only stay empty", "n/a", ""},
		{"foreign number untouched", "441632960961", "441632960961"},
		{"short national", "0145", "33145"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.raw); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	for _, raw := range []string{"+33 1 45 22 11 34", "0145221134", "0033145221134", "", "441632960961"} {
		once := NormalizePhone(raw)
		if twice := NormalizePhone(once); twice != once {
			t.Errorf("NormalizePhone not idempotent on %q: %q -> %q", raw, once, twice)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name       string
		normalized string
		wantValid  bool
		wantReason ErrorReason
	}{
		{"valid fax number", "33145221134", true, ""},
		{"empty", "", false, ReasonEmpty},
		{"too short", "3314522113", false, ReasonBadLength},
		{"too long", "331452211345", false, ReasonBadLength},
		{"wrong country code", "44163296096", false, ReasonBadCountryCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := ValidatePhone(tt.normalized)
			if valid != tt.wantValid || reason != tt.wantReason {
				t.Errorf("ValidatePhone(%q) = (%v, %q), want (%v, %q)",
					tt.normalized, valid, reason, tt.wantValid, tt.wantReason)
			}
		})
	}
}

func TestValidatePhoneVoiceRange(t *testing.T) {
	// Mobile ranges are accepted by default and rejected only with the
	// opt-in rule.
	if valid, _ := ValidatePhone("33612345678"); !valid {
		t.Error("mobile range should pass the default rule set")
	}

	valid, reason := ValidatePhone("33612345678", RejectVoiceRange)
	if valid || reason != ReasonRestrictedRange {
		t.Errorf("ValidatePhone with RejectVoiceRange = (%v, %q), want (false, %q)",
			valid, reason, ReasonRestrictedRange)
	}
	if valid, _ := ValidatePhone("33712345678", RejectVoiceRange); valid {
		t.Error("337 range should be rejected by RejectVoiceRange")
	}
	if valid, _ := ValidatePhone("33145221134", RejectVoiceRange); !valid {
		t.Error("landline fax number should still pass with RejectVoiceRange")
	}
}
