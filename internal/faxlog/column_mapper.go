package faxlog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalField is a normalized field name used across all import sources.
type CanonicalField string

const (
	FieldTransmissionID CanonicalField = "transmission_id"
	FieldUser           CanonicalField = "user"
	FieldMode           CanonicalField = "mode"
	FieldTimestamp      CanonicalField = "timestamp"
	FieldPhone          CanonicalField = "phone"
	FieldPages          CanonicalField = "pages"
	FieldDuration       CanonicalField = "duration"
)

// requiredFields must all resolve to a source column for an import to
// proceed. The remaining fields degrade to safe defaults when absent.
var requiredFields = []CanonicalField{FieldMode, FieldPhone, FieldPages, FieldTimestamp}

// aliasEntry lists the acceptable header spellings for one canonical
// field. Order encodes priority: the first alias with an exact
// canonicalized match among the source headers wins.
type aliasEntry struct {
	field   CanonicalField
	aliases []string
}

// AliasTable is the immutable alias configuration consumed by MapColumns.
// Build one with DefaultAliases or LoadAliases and pass it into the
// importer; there is no process-wide mutable table.
type AliasTable struct {
	entries []aliasEntry
}

// DefaultAliases returns the built-in alias table. It covers the header
// spellings seen across provider export variants, plus the positional
// names (col_0, col_3, ...) that headerless exports degrade to.
func DefaultAliases() AliasTable {
	return AliasTable{entries: []aliasEntry{
		{FieldTransmissionID, []string{"transmission_id", "fax_id", "id", "identifiant", "reference", "col_0"}},
		{FieldUser, []string{"user", "utilisateur", "username", "emetteur", "sender", "expediteur", "col_1"}},
		{FieldMode, []string{"mode", "type", "direction", "sens", "type_fax", "col_3"}},
		{FieldTimestamp, []string{"timestamp", "sent_at", "date", "date_envoi", "date_heure", "horodatage", "col_2"}},
		{FieldPhone, []string{"phone", "numero_appele", "numero appele", "recipient", "destinataire", "called_number", "numero", "col_7"}},
		{FieldPages, []string{"pages", "nombre_pages", "nb_pages", "page_count", "col_10"}},
		{FieldDuration, []string{"duration", "duration_seconds", "duree", "duree_secondes", "col_11"}},
	}}
}

// aliasesFor returns the current alias list for a field, nil when the
// table has no entry for it.
func (t AliasTable) aliasesFor(field CanonicalField) []string {
	for _, e := range t.entries {
		if e.field == field {
			return e.aliases
		}
	}
	return nil
}

// WithAliases returns a copy of the table where the given field's alias
// list is replaced. Unknown fields are appended as new optional entries.
func (t AliasTable) WithAliases(field CanonicalField, aliases []string) AliasTable {
	out := AliasTable{entries: make([]aliasEntry, len(t.entries))}
	copy(out.entries, t.entries)
	for i, e := range out.entries {
		if e.field == field {
			out.entries[i] = aliasEntry{field, aliases}
			return out
		}
	}
	out.entries = append(out.entries, aliasEntry{field, aliases})
	return out
}

// ColumnMapping is the resolved mapping from canonical fields to source
// column indices.
type ColumnMapping struct {
	Fields  map[CanonicalField]int
	Headers []string // headers as seen in the source, canonical form not applied
}

// Index returns the source column index for a canonical field, or -1
// when the field has no match.
func (m *ColumnMapping) Index(f CanonicalField) int {
	if idx, ok := m.Fields[f]; ok {
		return idx
	}
	return -1
}

// MissingColumnsError reports every required canonical field that could
// not be matched, together with the full observed header list.
type MissingColumnsError struct {
	Missing []CanonicalField
	Headers []string
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("missing required columns: %s (headers seen: %s)",
		strings.Join(names, ", "), strings.Join(e.Headers, ", "))
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// canonicalizeHeader lowercases, strips accents, collapses every run of
// non-alphanumeric characters to a single space and trims. Both source
// headers and aliases go through it, so "Numéro Appelé" and
// "numero_appele" land on the same key.
func canonicalizeHeader(h string) string {
	s := strings.ToLower(h)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	var b strings.Builder
	space := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		} else {
			space = true
		}
	}
	return b.String()
}

// MapColumns resolves the alias table against a source header row. Pure
// function of (headers, table); fails with *MissingColumnsError when any
// required field has no match.
func MapColumns(headers []string, table AliasTable) (*ColumnMapping, error) {
	byCanonical := make(map[string]int, len(headers))
	for i, h := range headers {
		key := canonicalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := byCanonical[key]; !seen {
			byCanonical[key] = i
		}
	}

	mapping := &ColumnMapping{
		Fields:  make(map[CanonicalField]int, len(table.entries)),
		Headers: headers,
	}
	for _, e := range table.entries {
		for _, alias := range e.aliases {
			if idx, ok := byCanonical[canonicalizeHeader(alias)]; ok {
				mapping.Fields[e.field] = idx
				break
			}
		}
	}

	var missing []CanonicalField
	for _, f := range requiredFields {
		if _, ok := mapping.Fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Headers: headers}
	}
	return mapping, nil
}

// PositionalHeaders builds the synthetic col_N header row used when a
// source file carries no header row and falls back to its fixed layout.
func PositionalHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("col_%d", i)
	}
	return headers
}
