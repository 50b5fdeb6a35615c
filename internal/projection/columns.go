// Package projection renders schema-less case records as a table whose
// columns are chosen at view time.
package projection

import "github.com/court-opinions/engine/internal/record"

// IDField is the internal identifier column. It is never part of the column universe.
const IDField = "id"

// MinimalField is what remains selected when every column is toggled off via ToggleAll.
const MinimalField = "case_name"

// DefaultFields is the starter selection, filtered against the universe.
var DefaultFields = []string{"case_name", "court", "case_date", "state"}

// DeriveColumns returns the ordered column universe of a batch. Only the
// first record is consulted; columns that appear only in later records are
// not part of the universe.
func DeriveColumns(batch []*record.Record) []string {
	if len(batch) == 0 || batch[0] == nil {
		return nil
	}
	keys := batch[0].Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == IDField {
			continue
		}
		out = append(out, k)
	}
	return out
}
