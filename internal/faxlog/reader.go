package faxlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrEmptyTable is returned when the source contains no rows at all.
var ErrEmptyTable = errors.New("empty table")

// Table is a fully-materialized, already-decoded source file: ordered
// rows of string cells. It is what the import pipeline consumes; the
// reader below is the only place that touches raw bytes.
type Table struct {
	Rows      [][]string
	Delimiter rune
}

var delimiters = []rune{';', ',', '\t'}

// ReadTable decodes and parses one export file. Provider exports come
// with inconsistent delimiters and encodings, so it strips a UTF-8 BOM,
// falls back to Latin-1 when the bytes are not valid UTF-8, and picks
// the delimiter that yields the widest first row.
func ReadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyTable
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		data = decoded
	}

	var best *Table
	for _, delim := range delimiters {
		rows, err := parseCSV(data, delim)
		if err != nil || len(rows) == 0 {
			continue
		}
		if best == nil || len(rows[0]) > len(best.Rows[0]) {
			best = &Table{Rows: rows, Delimiter: delim}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("unreadable table structure")
	}
	return best, nil
}

func parseCSV(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
