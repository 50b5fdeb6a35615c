package projection

import (
	"unicode/utf8"

	"github.com/court-opinions/engine/internal/record"
)

const (
	// EmptyMarker is displayed for null or absent values.
	EmptyMarker = "null"
	// TruncateAt is the number of characters shown before a string is cut.
	TruncateAt = 100
	// TruncationIndicator is appended to cut strings.
	TruncationIndicator = "..."
)

// Cell is the display form of one value. Full holds the untruncated text
// when Truncated is set.
type Cell struct {
	Text      string `json:"text"`
	Full      string `json:"full,omitempty"`
	Truncated bool   `json:"truncated"`
	Empty     bool   `json:"empty"`
}

// RenderCell maps a value to its display form. ok is false when the value was absent.
func RenderCell(v record.Value, ok bool) Cell {
	if !ok || v.IsNull() {
		return Cell{Text: EmptyMarker, Empty: true}
	}
	if v.Kind() == record.KindList {
		return Cell{Text: v.String()}
	}
	if s, isString := v.AsString(); isString && utf8.RuneCountInString(s) > TruncateAt {
		return Cell{Text: truncate(s, TruncateAt) + TruncationIndicator, Full: s, Truncated: true}
	}
	return Cell{Text: v.String()}
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
