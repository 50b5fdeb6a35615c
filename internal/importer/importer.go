package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/court-opinions/engine/internal/record"
	appErr "github.com/court-opinions/engine/pkg/errors"
)

// RowError describes one rejected row.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
}

// Result is the outcome of a successful import. Records keep source order.
type Result struct {
	TotalRows int
	Records   []*record.Record
	Errors    []RowError
}

// Imported returns the number of accepted rows.
func (r *Result) Imported() int { return len(r.Records) }

// Messages renders Errors as "Row N: reason" lines.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.String()
	}
	return out
}

// Import reads every row of src. Rows that fail to decode or normalize are
// reported in Result.Errors; only an unreadable container or a cancelled ctx
// fails the whole import.
func Import(ctx context.Context, src Source) (*Result, error) {
	res := &Result{TotalRows: src.TotalRows()}
	err := src.Rows(ctx, func(row RawRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if row.Err != nil {
			res.Errors = append(res.Errors, RowError{Row: row.Index, Reason: row.Err.Error()})
			return nil
		}
		rec, err := Normalize(row.Record)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: row.Index, Reason: err.Error()})
			return nil
		}
		res.Records = append(res.Records, rec)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, appErr.Wrap(err, appErr.CodeDeadline, "import cancelled")
		}
		var ae *appErr.AppError
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid parquet file")
	}
	return res, nil
}
