// Package pipeline turns raw provider CSV extracts into canonical
// rainfall records. Extracts are semicolon-delimited with comma decimal
// separators, and the column layout varies by provider format version.
package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hppeng/hpp-platform/internal/domain"
)

// rainAliases are the known names for the 6-minute rain column, in
// resolution priority order.
var rainAliases = []string{"RR6", "RAIN_6MIN", "RAIN", "PRECIP", "RR", "RR_6"}

const compactLayout = "200601021504" // YYYYMMDDHHMM

// Normalize parses a raw CSV payload into canonical records: UTC
// timestamps on 6-minute boundaries, non-negative millimeters, sorted
// ascending with no duplicate timestamps. Rows that cannot be
// reconstructed are dropped; an unrecognizable column layout is a
// *domain.SchemaError.
func Normalize(raw []byte) ([]domain.Record, error) {
	header, rows, err := readTable(raw)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, &domain.SchemaError{Reason: "empty payload"}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	rainIdx := -1
	for _, alias := range rainAliases {
		if i, ok := cols[alias]; ok {
			rainIdx = i
			break
		}
	}
	if rainIdx < 0 {
		return nil, &domain.SchemaError{Reason: "rain column not found", Columns: header}
	}

	parseTS, err := timestampStrategy(cols, header)
	if err != nil {
		return nil, err
	}

	recs := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		ts, ok := parseTS(row)
		if !ok {
			continue
		}
		mm, ok := parseRain(field(row, rainIdx))
		if !ok || mm < 0 {
			continue
		}
		// Defensive re-check of the storage constraint.
		if !domain.Aligned(ts) {
			continue
		}
		recs = append(recs, domain.Record{TS: ts, Millimeters: mm})
	}

	// Stable ascending sort, then keep the last row per timestamp: for
	// duplicate instants the later input row wins.
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].TS.Before(recs[j].TS) })
	out := recs[:0]
	for _, rec := range recs {
		if n := len(out); n > 0 && out[n-1].TS.Equal(rec.TS) {
			out[n-1] = rec
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// readTable decodes the semicolon-delimited payload and returns the
// normalized (trimmed, uppercased) header plus the data rows.
func readTable(raw []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = ';'
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv payload: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(all[0]))
	for i, name := range all[0] {
		header[i] = strings.ToUpper(strings.TrimSpace(name))
	}
	return header, all[1:], nil
}

// rowTimestamp reconstructs the UTC instant of one row; ok is false when
// the row has no usable timestamp and must be dropped.
type rowTimestamp func(row []string) (ts time.Time, ok bool)

// timestampStrategy picks the first applicable reconstruction:
//
//  1. DATE (YYYYMMDD) + HHMN (HHMM, zero-padded) columns
//  2. a single ISO-8601 DATETIME column
//  3. DATE alone, either already concatenated (12 chars) or date-only
//     (8 chars, midnight assumed)
func timestampStrategy(cols map[string]int, header []string) (rowTimestamp, error) {
	dateIdx, hasDate := cols["DATE"]
	hhmnIdx, hasHHMN := cols["HHMN"]
	dtIdx, hasDT := cols["DATETIME"]

	switch {
	case hasDate && hasHHMN:
		return func(row []string) (time.Time, bool) {
			date := strings.TrimSpace(field(row, dateIdx))
			hhmn := strings.TrimSpace(field(row, hhmnIdx))
			for len(hhmn) < 4 {
				hhmn = "0" + hhmn
			}
			ts, err := time.ParseInLocation(compactLayout, date+hhmn, time.UTC)
			return ts, err == nil
		}, nil

	case hasDT:
		return func(row []string) (time.Time, bool) {
			ts, err := parseISO(strings.TrimSpace(field(row, dtIdx)))
			return ts, err == nil
		}, nil

	case hasDate:
		return func(row []string) (time.Time, bool) {
			date := strings.TrimSpace(field(row, dateIdx))
			switch len(date) {
			case 12:
			case 8:
				date += "0000"
			default:
				return time.Time{}, false
			}
			ts, err := time.ParseInLocation(compactLayout, date, time.UTC)
			return ts, err == nil
		}, nil
	}

	return nil, &domain.SchemaError{Reason: "no usable date/time columns", Columns: header}
}

func parseISO(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return ts.UTC(), nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
}

// parseRain coerces a rain value, tolerating comma decimal separators.
// NaN and infinities parse but are not measurements; they become missing.
func parseRain(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
