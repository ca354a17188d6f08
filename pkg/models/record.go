package models

import (
	"encoding/json"
	"strings"
)

// Record is one logical row: an ordered sequence of columns.
type Record struct {
	columns []Column
}

func NewRecord() *Record {
	return &Record{}
}

// NewRecordWith builds a record from the given columns, in order.
func NewRecordWith(cols ...Column) *Record {
	r := &Record{columns: make([]Column, len(cols))}
	copy(r.columns, cols)
	return r
}

func (r *Record) AddColumn(c Column) {
	r.columns = append(r.columns, c)
}

// SetColumn replaces column i, growing the record with null columns when i
// is past the end.
func (r *Record) SetColumn(i int, c Column) {
	for len(r.columns) <= i {
		r.columns = append(r.columns, Column{})
	}
	r.columns[i] = c
}

// Column returns column i, or a null column when i is out of range.
func (r *Record) Column(i int) Column {
	if i < 0 || i >= len(r.columns) {
		return Column{}
	}
	return r.columns[i]
}

func (r *Record) ColumnNumber() int {
	return len(r.columns)
}

// Columns returns a copy of the column slice.
func (r *Record) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r *Record) ByteSize() int {
	n := 0
	for _, c := range r.columns {
		n += c.ByteSize()
	}
	return n
}

// Clone copies the column slice so the copy can be edited without touching r.
func (r *Record) Clone() *Record {
	return NewRecordWith(r.columns...)
}

// String renders the record as a JSON array of {type, value} pairs, the form
// used in dirty-record logs.
func (r *Record) String() string {
	type entry struct {
		Type  string  `json:"type"`
		Value *string `json:"value"`
	}
	out := make([]entry, 0, len(r.columns))
	for _, c := range r.columns {
		e := entry{Type: c.Type().String()}
		if !c.IsNull() {
			s := c.String()
			e.Value = &s
		}
		out = append(out, e)
	}
	b, err := json.Marshal(out)
	if err != nil {
		parts := make([]string, 0, len(r.columns))
		for _, c := range r.columns {
			parts = append(parts, c.String())
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return string(b)
}
