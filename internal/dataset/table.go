// Package dataset holds tabular flow records, their segmentation and their textual form.
package dataset

// Row is one record keyed by column name. Index is the row's position in the
// dataset it was loaded from and survives filtering and slicing.
type Row struct {
	Index  int
	Values map[string]any
}

// Table is an ordered set of rows sharing one column list.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is one of the table's columns.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// WithoutColumn returns a copy of t with name removed from the columns and from every row.
func (t Table) WithoutColumn(name string) Table {
	out := Table{Columns: make([]string, 0, len(t.Columns)), Rows: make([]Row, 0, len(t.Rows))}
	for _, c := range t.Columns {
		if c != name {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, row := range t.Rows {
		values := make(map[string]any, len(row.Values))
		for k, v := range row.Values {
			if k != name {
				values[k] = v
			}
		}
		out.Rows = append(out.Rows, Row{Index: row.Index, Values: values})
	}
	return out
}

// Select keeps the named columns that exist in t, in the order given.
func (t Table) Select(columns []string) Table {
	kept := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.HasColumn(c) {
			kept = append(kept, c)
		}
	}
	out := Table{Columns: kept, Rows: make([]Row, 0, len(t.Rows))}
	for _, row := range t.Rows {
		values := make(map[string]any, len(kept))
		for _, c := range kept {
			if v, ok := row.Values[c]; ok {
				values[c] = v
			}
		}
		out.Rows = append(out.Rows, Row{Index: row.Index, Values: values})
	}
	return out
}

// Reindex numbers the rows 0..n-1 in their current order.
func (t Table) Reindex() Table {
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = Row{Index: i, Values: row.Values}
	}
	return Table{Columns: t.Columns, Rows: rows}
}
