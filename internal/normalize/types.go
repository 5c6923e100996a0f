package normalize

import "sort"

// #region raw-record

// Series is one named field with its aligned sequence of values.
type Series struct {
	Name   string
	Values []interface{}
}

// RawRecord is caller-supplied columnar data. The slice order defines the
// column order of the resulting table; Go maps carry no order, so callers
// starting from a map should use RecordFromMap.
type RawRecord []Series

// RecordFromMap builds a RawRecord with deterministic (sorted) field order.
func RecordFromMap(m map[string][]interface{}) RawRecord {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	rec := make(RawRecord, 0, len(m))
	for _, name := range names {
		rec = append(rec, Series{Name: name, Values: m[name]})
	}
	return rec
}

// FieldNames returns the record's field names in column order.
func (r RawRecord) FieldNames() []string {
	names := make([]string, len(r))
	for i, s := range r {
		names[i] = s.Name
	}
	return names
}

// RowCount returns the length of the first series, or 0 for an empty record.
// Alignment across series is the normalizer's job to verify.
func (r RawRecord) RowCount() int {
	if len(r) == 0 {
		return 0
	}
	return len(r[0].Values)
}

// #endregion raw-record

// #region column

// ColumnKind discriminates numeric from text columns.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
)

// Column is one table column. Exactly one of Floats/Texts is populated,
// selected by Kind.
type Column struct {
	Name   string
	Kind   ColumnKind
	Floats []float64
	Texts  []string
}

// Len returns the column's row count.
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Floats)
	}
	return len(c.Texts)
}

// #endregion column

// #region table

// Table is the normalized tabular structure: ordered columns with equal
// row counts. Produced by the Normalizer, consumed by the model manager.
type Table struct {
	Columns []Column
	Rows    int
}

// ColumnNames returns the table's column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false when absent.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// #endregion table
