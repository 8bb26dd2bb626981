package faxlog

import (
	"errors"
	"testing"
)

func TestCanonicalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Numéro Appelé", "numero appele"},
		{"NUMERO_APPELE", "numero appele"},
		{"  Nb. Pages  ", "nb pages"},
		{"date_envoi", "date envoi"},
		{"Durée (secondes)", "duree secondes"},
		{"___", ""},
	}

	for _, tt := range tests {
		if got := canonicalizeHeader(tt.in); got != tt.want {
			t.Errorf("canonicalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapColumns(t *testing.T) {
	headers := []string{"Identifiant", "Utilisateur", "Date Envoi", "Type", "Numéro Appelé", "Nb_Pages", "Durée"}
	mapping, err := MapColumns(headers, DefaultAliases())
	if err != nil {
		t.Fatalf("MapColumns() error: %v", err)
	}

	want := map[CanonicalField]int{
		FieldTransmissionID: 0,
		FieldUser:           1,
		FieldTimestamp:      2,
		FieldMode:           3,
		FieldPhone:          4,
		FieldPages:          5,
		FieldDuration:       6,
	}
	for field, idx := range want {
		if got := mapping.Index(field); got != idx {
			t.Errorf("Index(%s) = %d, want %d", field, got, idx)
		}
	}
}

func TestMapColumnsMissing(t *testing.T) {
	headers := []string{"Utilisateur", "Date Envoi", "Commentaire"}
	_, err := MapColumns(headers, DefaultAliases())

	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("MapColumns() error = %v, want *MissingColumnsError", err)
	}

	got := map[CanonicalField]bool{}
	for _, f := range missing.Missing {
		got[f] = true
	}
	for _, f := range []CanonicalField{FieldMode, FieldPhone, FieldPages} {
		if !got[f] {
			t.Errorf("Missing should contain %s, got %v", f, missing.Missing)
		}
	}
	if got[FieldTimestamp] {
		t.Errorf("timestamp resolved via Date Envoi, should not be in %v", missing.Missing)
	}
	if len(missing.Headers) != 3 {
		t.Errorf("Headers = %v, want the 3 observed headers", missing.Headers)
	}
}

func TestMapColumnsFirstMatchWins(t *testing.T) {
	// Two columns both canonicalize to valid phone aliases; the earlier
	// alias in the table decides, and for a duplicated header the first
	// occurrence decides.
	headers := []string{"mode", "date", "pages", "destinataire", "phone", "phone"}
	mapping, err := MapColumns(headers, DefaultAliases())
	if err != nil {
		t.Fatalf("MapColumns() error: %v", err)
	}
	if got := mapping.Index(FieldPhone); got != 4 {
		t.Errorf("Index(phone) = %d, want 4 (alias priority over column order)", got)
	}
}

func TestWithAliases(t *testing.T) {
	table := DefaultAliases().WithAliases(FieldPhone, []string{"fax_target"})
	headers := []string{"mode", "date", "pages", "fax_target"}

	mapping, err := MapColumns(headers, table)
	if err != nil {
		t.Fatalf("MapColumns() error: %v", err)
	}
	if got := mapping.Index(FieldPhone); got != 3 {
		t.Errorf("Index(phone) = %d, want 3", got)
	}

	// The original table is unchanged.
	if _, err := MapColumns(headers, DefaultAliases()); err == nil {
		t.Error("default table should not know fax_target")
	}
}

func TestPositionalHeaders(t *testing.T) {
	headers := PositionalHeaders(14)
	if len(headers) != 14 || headers[0] != "col_0" || headers[13] != "col_13" {
		t.Fatalf("PositionalHeaders(14) = %v", headers)
	}

	mapping, err := MapColumns(headers, DefaultAliases())
	if err != nil {
		t.Fatalf("MapColumns(positional) error: %v", err)
	}
	want := map[CanonicalField]int{
		FieldTransmissionID: 0,
		FieldUser:           1,
		FieldTimestamp:      2,
		FieldMode:           3,
		FieldPhone:          7,
		FieldPages:          10,
		FieldDuration:       11,
	}
	for field, idx := range want {
		if got := mapping.Index(field); got != idx {
			t.Errorf("positional Index(%s) = %d, want %d", field, got, idx)
		}
	}
}
