package projection

import "github.com/court-opinions/engine/internal/record"

// Row is one projected record.
type Row struct {
	ID    string `json:"case_id,omitempty"`
	Cells []Cell `json:"cells"`
}

// Table is a rendered view of a batch.
type Table struct {
	AvailableColumns []string `json:"available_columns"`
	SelectedColumns  []string `json:"selected_columns"`
	Rows             []Row    `json:"rows"`
}

// Project renders the selected fields of each record in order. Records are
// read only.
func Project(records []*record.Record, fields []string) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		row := Row{Cells: make([]Cell, len(fields))}
		if id, ok := r.Get(IDField); ok && !id.IsNull() {
			row.ID = id.String()
		}
		for i, f := range fields {
			v, ok := r.Get(f)
			row.Cells[i] = RenderCell(v, ok)
		}
		rows = append(rows, row)
	}
	return rows
}

// Build derives the universe of records, starts from DefaultSelection,
// lets configure adjust it and renders. configure may be nil.
func Build(records []*record.Record, configure func(*Selection)) Table {
	universe := DeriveColumns(records)
	if universe == nil {
		universe = []string{}
	}
	sel := DefaultSelection(universe)
	if configure != nil {
		configure(sel)
	}
	fields := sel.Fields()
	return Table{
		AvailableColumns: universe,
		SelectedColumns:  fields,
		Rows:             Project(records, fields),
	}
}
