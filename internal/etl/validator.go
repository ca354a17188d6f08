package etl

import (
	"fmt"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// Validator checks that records fit the sink's column layout.
type Validator struct {
	Columns []string
}

func NewValidator(columns []string) *Validator {
	return &Validator{Columns: columns}
}

// ValidateRecord fails when the record width differs from the configured
// writer columns. An empty column list accepts any width.
func (v *Validator) ValidateRecord(rec *models.Record) error {
	if len(v.Columns) == 0 {
		return nil
	}
	if rec.ColumnNumber() != len(v.Columns) {
		return &ConfigError{
			Code: CodeIllegalValue,
			Msg:  fmt.Sprintf("record has %d columns but writer expects %d %v", rec.ColumnNumber(), len(v.Columns), v.Columns),
		}
	}
	return nil
}
