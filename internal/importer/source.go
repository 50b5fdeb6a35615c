// Package importer turns a tabular source into normalized case records,
// collecting per-row failures instead of aborting.
package importer

import (
	"context"

	"github.com/court-opinions/engine/internal/record"
)

// RawRow is one row as read from a source. Err is set when the row could not
// be decoded; the row is then rejected without stopping the import.
type RawRow struct {
	Index  int
	Record *record.Record
	Err    error
}

// Source yields rows of named columns in order.
type Source interface {
	TotalRows() int
	// Rows calls yield once per row. A non-nil error from Rows means the
	// container itself is unreadable.
	Rows(ctx context.Context, yield func(RawRow) error) error
}

// SliceSource is a Source over in-memory rows.
type SliceSource struct {
	rows []RawRow
}

// NewSliceSource wraps records as a Source.
func NewSliceSource(records ...*record.Record) *SliceSource {
	s := &SliceSource{}
	for _, r := range records {
		s.Append(r, nil)
	}
	return s
}

// Append adds a row; err marks it as undecodable.
func (s *SliceSource) Append(r *record.Record, err error) {
	s.rows = append(s.rows, RawRow{Index: len(s.rows), Record: r, Err: err})
}

func (s *SliceSource) TotalRows() int { return len(s.rows) }

func (s *SliceSource) Rows(ctx context.Context, yield func(RawRow) error) error {
	for _, row := range s.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(row); err != nil {
			return err
		}
	}
	return nil
}
