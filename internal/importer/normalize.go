package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/court-opinions/engine/internal/projection"
	"github.com/court-opinions/engine/internal/record"
)

// Well-known columns with coercion rules. Anything else passes through.
const (
	ColumnCaseName    = "case_name"
	ColumnCaseDate    = "case_date"
	ColumnJudgesNames = "judges_names"
)

var textColumns = []string{
	"court",
	"docket_number",
	"state",
	"election_type",
	"party_who_appointed_judge",
	"opinion_text",
	"dissent_text",
	"concur_text",
}

// DateLayout is the canonical form of case_date.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
}

// Normalize applies the column coercion rules to a copy of in.
func Normalize(in *record.Record) (*record.Record, error) {
	if in == nil {
		return nil, fmt.Errorf("empty row")
	}
	out := in.Clone()
	out.Delete(projection.IDField)

	name, err := requiredText(out, ColumnCaseName)
	if err != nil {
		return nil, err
	}
	out.Set(ColumnCaseName, record.String(name))

	for _, col := range textColumns {
		v, ok := out.Get(col)
		if !ok {
			continue
		}
		tv, err := optionalText(col, v)
		if err != nil {
			return nil, err
		}
		out.Set(col, tv)
	}

	if v, ok := out.Get(ColumnCaseDate); ok {
		dv, err := coerceDate(v)
		if err != nil {
			return nil, err
		}
		out.Set(ColumnCaseDate, dv)
	}

	if v, ok := out.Get(ColumnJudgesNames); ok {
		jv, err := coerceJudges(v)
		if err != nil {
			return nil, err
		}
		out.Set(ColumnJudgesNames, jv)
	}
	return out, nil
}

func requiredText(r *record.Record, col string) (string, error) {
	v, ok := r.Get(col)
	if !ok || v.IsNull() {
		return "", fmt.Errorf("%s is required", col)
	}
	tv, err := optionalText(col, v)
	if err != nil {
		return "", err
	}
	s, _ := tv.AsString()
	if s == "" {
		return "", fmt.Errorf("%s is required", col)
	}
	return s, nil
}

// optionalText trims strings and stringifies other scalars; empty becomes null.
func optionalText(col string, v record.Value) (record.Value, error) {
	switch v.Kind() {
	case record.KindNull:
		return v, nil
	case record.KindList, record.KindMap:
		return record.Value{}, fmt.Errorf("%s: expected text, got %s", col, v.Kind())
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return record.Null(), nil
	}
	return record.String(s), nil
}

func coerceDate(v record.Value) (record.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	s, ok := v.AsString()
	if !ok {
		return record.Value{}, fmt.Errorf("%s: unsupported type %s", ColumnCaseDate, v.Kind())
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return record.Null(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return record.String(t.Format(DateLayout)), nil
		}
	}
	return record.Value{}, fmt.Errorf("%s: cannot parse %q as a date", ColumnCaseDate, s)
}

func coerceJudges(v record.Value) (record.Value, error) {
	switch v.Kind() {
	case record.KindNull, record.KindList:
		return v, nil
	case record.KindString:
		s, _ := v.AsString()
		parts := strings.Split(strings.ReplaceAll(s, ";", ","), ",")
		names := make([]record.Value, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				names = append(names, record.String(p))
			}
		}
		return record.List(names...), nil
	}
	return record.Value{}, fmt.Errorf("%s: expected list or string, got %s", ColumnJudgesNames, v.Kind())
}
