package faxlog

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
)

// minPositionalColumns is the narrowest layout accepted when a file
// carries no header row and columns must be addressed by position.
const minPositionalColumns = 14

// timestampFormats are tried in order; the first parse that succeeds
// wins. An unparsable value yields a nil timestamp, which is not fatal
// for the import itself.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02",
}

// ImportMeta describes one import pass.
type ImportMeta struct {
	TotalRows    int      `json:"total_rows"`
	SkippedBlank int      `json:"skipped_blank"`
	Columns      []string `json:"columns"`
	Headerless   bool     `json:"headerless"`
}

// Importer drives schema reconciliation and type coercion over a whole
// table. It holds no per-import state; one Importer can serve concurrent
// imports.
type Importer struct {
	aliases AliasTable
}

func NewImporter(aliases AliasTable) *Importer {
	return &Importer{aliases: aliases}
}

// Normalize maps every row of the table onto NormalizedRecords. Only a
// structurally broken table aborts (no resolvable columns); malformed
// values inside a well-formed row are coerced to safe defaults and left
// for row validation to flag. Rows blank across every canonical field
// are skipped and do not count toward totals.
func (imp *Importer) Normalize(t *Table) ([]NormalizedRecord, *ImportMeta, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, nil, ErrEmptyTable
	}

	mapping, headerless, err := imp.resolveColumns(t)
	if err != nil {
		return nil, nil, err
	}

	dataRows := t.Rows
	if !headerless {
		dataRows = t.Rows[1:]
	}

	meta := &ImportMeta{
		TotalRows:  len(dataRows),
		Columns:    mapping.Headers,
		Headerless: headerless,
	}

	records := make([]NormalizedRecord, 0, len(dataRows))
	for _, row := range dataRows {
		rec, blank := normalizeRow(row, mapping)
		if blank {
			meta.SkippedBlank++
			continue
		}
		records = append(records, rec)
	}

	log.Printf("[faxlog] normalized %d rows (%d blank skipped, headerless=%v)",
		len(records), meta.SkippedBlank, headerless)
	return records, meta, nil
}

// resolveColumns maps the first row as a header; when required columns
// are missing but the layout is wide enough for positional addressing,
// the first row is treated as data and synthetic col_N names take over.
func (imp *Importer) resolveColumns(t *Table) (*ColumnMapping, bool, error) {
	mapping, err := MapColumns(t.Rows[0], imp.aliases)
	if err == nil {
		return mapping, false, nil
	}

	var missing *MissingColumnsError
	if errors.As(err, &missing) && len(t.Rows[0]) >= minPositionalColumns {
		positional, perr := MapColumns(PositionalHeaders(len(t.Rows[0])), imp.aliases)
		if perr == nil {
			log.Printf("[faxlog] no header row detected, using positional layout (%d columns)", len(t.Rows[0]))
			return positional, true, nil
		}
	}
	return nil, false, err
}

func normalizeRow(row []string, mapping *ColumnMapping) (NormalizedRecord, bool) {
	cell := func(f CanonicalField) string {
		idx := mapping.Index(f)
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	id := cell(FieldTransmissionID)
	user := cell(FieldUser)
	modeRaw := cell(FieldMode)
	tsRaw := cell(FieldTimestamp)
	phoneRaw := cell(FieldPhone)
	pagesRaw := cell(FieldPages)
	durationRaw := cell(FieldDuration)

	if id == "" && user == "" && modeRaw == "" && tsRaw == "" &&
		phoneRaw == "" && pagesRaw == "" && durationRaw == "" {
		return NormalizedRecord{}, true
	}

	if user == "" {
		user = UnknownUser
	}
	mode, _ := ParseMode(modeRaw)

	rec := NormalizedRecord{
		TransmissionID:  id,
		User:            user,
		Mode:            mode,
		ModeRaw:         modeRaw,
		Timestamp:       parseTimestamp(tsRaw),
		PhoneRaw:        phoneRaw,
		PhoneNormalized: NormalizePhone(phoneRaw),
		Pages:           coerceInt(pagesRaw),
		PagesRaw:        pagesRaw,
	}
	if durationRaw != "" {
		if d := coerceInt(durationRaw); d > 0 || durationRaw == "0" {
			rec.DurationSeconds = &d
		}
	}
	return rec, false
}

func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, format := range timestampFormats {
		if ts, err := time.Parse(format, raw); err == nil {
			return &ts
		}
	}
	return nil
}

// coerceInt parses a source integer best-effort, accepting the
// float-shaped values ("3.0") some exports produce. Returns 0 when the
// value is uncoercible; the pages rule flags that later.
func coerceInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}
