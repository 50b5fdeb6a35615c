package projection

import (
	"strings"
	"testing"

	"github.com/court-opinions/engine/internal/record"
	"github.com/stretchr/testify/require"
)

func rec(fields ...record.Field) *record.Record { return record.FromFields(fields...) }

func f(name string, v record.Value) record.Field { return record.Field{Name: name, Value: v} }

func sampleBatch() []*record.Record {
	return []*record.Record{
		rec(f("id", record.Int(1)), f("case_name", record.String("A")), f("court", record.String("NY"))),
		rec(f("id", record.Int(2)), f("case_name", record.String("B")), f("extra", record.String("X"))),
	}
}

func TestDeriveColumnsUsesFirstRecordWithoutID(t *testing.T) {
	require.Equal(t, []string{"case_name", "court"}, DeriveColumns(sampleBatch()))
	require.Nil(t, DeriveColumns(nil))
}

func TestSelectAllThenToggleAllCollapsesToCaseName(t *testing.T) {
	sel := NewSelection(DeriveColumns(sampleBatch()))
	sel.ToggleAll()
	require.Equal(t, []string{"case_name", "court"}, sel.Fields())
	require.True(t, sel.AllSelected())

	sel.ToggleAll()
	require.Equal(t, []string{"case_name"}, sel.Fields())
}

func TestToggleAllWithoutCaseNameCollapsesToEmpty(t *testing.T) {
	sel := NewSelection([]string{"court", "state"})
	sel.SelectAll()
	sel.ToggleAll()
	require.Empty(t, sel.Fields())
}

func TestSelectAllAndNoneAreIdempotent(t *testing.T) {
	sel := NewSelection([]string{"case_name", "court", "state"})
	sel.SelectAll()
	sel.SelectAll()
	require.Equal(t, []string{"case_name", "court", "state"}, sel.Fields())
	sel.SelectNone()
	sel.SelectNone()
	require.Empty(t, sel.Fields())
}

func TestDefaultSelectionFiltersToUniverse(t *testing.T) {
	sel := DefaultSelection([]string{"state", "docket_number", "case_name"})
	require.Equal(t, []string{"state", "case_name"}, sel.Fields())
}

func TestUnknownFieldsAreIgnored(t *testing.T) {
	sel := NewSelection([]string{"case_name"}, "case_name", "nope")
	sel.Toggle("also_nope")
	require.Equal(t, []string{"case_name"}, sel.Fields())
	sel.Toggle("case_name")
	require.Empty(t, sel.Fields())
}

func TestRenderCell(t *testing.T) {
	require.Equal(t, Cell{Text: EmptyMarker, Empty: true}, RenderCell(record.Null(), true))
	require.Equal(t, Cell{Text: EmptyMarker, Empty: true}, RenderCell(record.Value{}, false))
	require.Equal(t, "a, b", RenderCell(record.List(record.String("a"), record.String("b")), true).Text)
	require.Equal(t, "42", RenderCell(record.Int(42), true).Text)

	long := strings.Repeat("x", 150)
	c := RenderCell(record.String(long), true)
	require.True(t, c.Truncated)
	require.Equal(t, strings.Repeat("x", 100)+TruncationIndicator, c.Text)
	require.Equal(t, long, c.Full)

	exact := strings.Repeat("y", 100)
	require.Equal(t, Cell{Text: exact}, RenderCell(record.String(exact), true))
}

func TestRenderCountsCharactersNotBytes(t *testing.T) {
	long := strings.Repeat("é", 120)
	c := RenderCell(record.String(long), true)
	require.True(t, c.Truncated)
	require.Equal(t, strings.Repeat("é", 100)+TruncationIndicator, c.Text)
}

func TestProjectDoesNotMutateRecords(t *testing.T) {
	long := strings.Repeat("z", 150)
	batch := []*record.Record{rec(f("id", record.String("c1")), f("opinion_text", record.String(long)))}

	rows := Project(batch, []string{"opinion_text", "missing"})
	require.Len(t, rows, 1)
	require.Equal(t, "c1", rows[0].ID)
	require.True(t, rows[0].Cells[0].Truncated)
	require.True(t, rows[0].Cells[1].Empty)

	v, _ := batch[0].Get("opinion_text")
	require.Equal(t, long, v.String())
}

func TestBuild(t *testing.T) {
	table := Build(sampleBatch(), nil)
	require.Equal(t, []string{"case_name", "court"}, table.AvailableColumns)
	require.Equal(t, []string{"case_name", "court"}, table.SelectedColumns)
	require.Len(t, table.Rows, 2)
	require.True(t, table.Rows[1].Cells[1].Empty)

	empty := Build(nil, func(s *Selection) { s.SelectAll() })
	require.Empty(t, empty.AvailableColumns)
	require.Empty(t, empty.Rows)
}
