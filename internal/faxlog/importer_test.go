package faxlog

import (
	"errors"
	"strings"
	"testing"
)

func TestImporterNormalize(t *testing.T) {
	input := strings.Join([]string{
		"Utilisateur;Date Envoi;Type;Numéro Appelé;Nb Pages;Durée",
		"jdupont;2024-03-15 10:30:00;SF;+33 1 45 22 11 34;3;45",
		";2024-03-15 11:00:00;RF;0145221135;2.0;",
		";;;;;",
		"mmartin;15/03/2024 14:20;SF;0612345678;1;30",
	}, "\n")

	table, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTable() error: %v", err)
	}

	records, meta, err := NewImporter(DefaultAliases()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}

	if meta.TotalRows != 4 || meta.SkippedBlank != 1 || meta.Headerless {
		t.Errorf("meta = %+v, want 4 rows, 1 blank, header mode", meta)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	first := records[0]
	if first.User != "jdupont" || first.Mode != ModeSent || first.Pages != 3 {
		t.Errorf("first record = %+v", first)
	}
	if first.PhoneNormalized != "33145221134" {
		t.Errorf("PhoneNormalized = %q", first.PhoneNormalized)
	}
	if first.Timestamp == nil || first.Timestamp.Hour() != 10 {
		t.Errorf("Timestamp = %v", first.Timestamp)
	}
	if first.DurationSeconds == nil || *first.DurationSeconds != 45 {
		t.Errorf("DurationSeconds = %v", first.DurationSeconds)
	}

	second := records[1]
	if second.User != UnknownUser {
		t.Errorf("missing user = %q, want %q", second.User, UnknownUser)
	}
	if second.Pages != 2 {
		t.Errorf("float-shaped pages coerced to %d, want 2", second.Pages)
	}
	if second.DurationSeconds != nil {
		t.Errorf("empty duration should stay nil, got %v", second.DurationSeconds)
	}

	third := records[2]
	if third.Timestamp == nil || third.Timestamp.Day() != 15 || third.Timestamp.Month() != 3 {
		t.Errorf("day-first timestamp = %v", third.Timestamp)
	}
}

func TestImporterNormalizeHeaderless(t *testing.T) {
	// 14-column export without a header row: the first row is data and
	// fields resolve by position.
	row := make([]string, 14)
	row[0] = "TX-1001"
	row[1] = "jdupont"
	row[2] = "2024-03-15 10:30:00"
	row[3] = "SF"
	row[7] = "0145221134"
	row[10] = "3"
	row[11] = "45"
	table := &Table{Rows: [][]string{row}, Delimiter: ';'}

	records, meta, err := NewImporter(DefaultAliases()).Normalize(table)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if !meta.Headerless || meta.TotalRows != 1 {
		t.Errorf("meta = %+v, want headerless single row", meta)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.TransmissionID != "TX-1001" || rec.User != "jdupont" || rec.Mode != ModeSent {
		t.Errorf("record = %+v", rec)
	}
	if rec.PhoneNormalized != "33145221134" || rec.Pages != 3 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Timestamp == nil {
		t.Error("timestamp not parsed from positional column")
	}
}

func TestImporterNormalizeNarrowHeaderless(t *testing.T) {
	// Too narrow for positional fallback: the missing-columns error from
	// the header attempt surfaces.
	table := &Table{Rows: [][]string{{"SF", "0145221134", "3"}}, Delimiter: ';'}

	_, _, err := NewImporter(DefaultAliases()).Normalize(table)
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("Normalize() error = %v, want *MissingColumnsError", err)
	}
}

func TestImporterNormalizeEmpty(t *testing.T) {
	if _, _, err := NewImporter(DefaultAliases()).Normalize(nil); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Normalize(nil) error = %v, want ErrEmptyTable", err)
	}
	if _, _, err := NewImporter(DefaultAliases()).Normalize(&Table{}); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Normalize(empty) error = %v, want ErrEmptyTable", err)
	}
}

func TestParseTimestampFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-03-15 10:30:00", "2024-03-15"},
		{"2024-03-15 10:30", "2024-03-15"},
		{"15/03/2024 10:30:00", "2024-03-15"},
		{"15/03/2024", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
	}
	for _, tt := range tests {
		ts := parseTimestamp(tt.raw)
		if ts == nil {
			t.Errorf("parseTimestamp(%q) = nil", tt.raw)
			continue
		}
		if got := ts.Format("2006-01-02"); got != tt.want {
			t.Errorf("parseTimestamp(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}

	if ts := parseTimestamp("not a date"); ts != nil {
		t.Errorf("parseTimestamp(garbage) = %v, want nil", ts)
	}
	if ts := parseTimestamp(""); ts != nil {
		t.Errorf("parseTimestamp(empty) = %v, want nil", ts)
	}
}
