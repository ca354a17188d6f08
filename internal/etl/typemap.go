package etl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/BartekS5/rdbsync/pkg/models"
	"github.com/BartekS5/rdbsync/pkg/utils"
)

// ColumnMeta describes one result column, captured once per task.
type ColumnMeta struct {
	Name     string
	Code     TypeCode
	TypeName string
}

// RecordBuilder converts scanned rows into records.
type RecordBuilder struct {
	decoder   *encoding.Decoder
	collector DirtyCollector
}

// NewRecordBuilder resolves the mandatory encoding, if any. An unknown
// encoding name is a ConfigError.
func NewRecordBuilder(mandatoryEncoding string, collector DirtyCollector) (*RecordBuilder, error) {
	b := &RecordBuilder{collector: collector}
	if strings.TrimSpace(mandatoryEncoding) == "" {
		return b, nil
	}
	enc, err := ianaindex.IANA.Encoding(mandatoryEncoding)
	if err != nil || enc == nil {
		return nil, &ConfigError{Code: CodeIllegalValue, Msg: fmt.Sprintf("unsupported mandatoryEncoding %q", mandatoryEncoding), Err: err}
	}
	b.decoder = enc.NewDecoder()
	return b, nil
}

// BuildRecord converts one row. A row that fails conversion is handed to the
// dirty collector as far as it got and no record is returned. The error is
// returned only when it is a DomainError, which aborts the task.
func (b *RecordBuilder) BuildRecord(sender RecordSender, values []interface{}, meta []ColumnMeta) (*models.Record, error) {
	rec := sender.CreateRecord()
	for i, m := range meta {
		var v interface{}
		if i < len(values) {
			v = values[i]
		}
		col, err := b.convert(m, v)
		if err != nil {
			b.collector.CollectDirtyRecord(rec, err)
			if IsDomainError(err) {
				return nil, err
			}
			return nil, nil
		}
		rec.AddColumn(col)
	}
	return rec, nil
}

func (b *RecordBuilder) convert(m ColumnMeta, v interface{}) (models.Column, error) {
	switch m.Code {
	case TypeChar, TypeNChar, TypeVarchar, TypeLongVarchar, TypeNVarchar, TypeLongNVarchar:
		if raw, ok := v.([]byte); ok && NormalizeTypeName(m.TypeName) == "UNIQUEIDENTIFIER" {
			return guidColumn(m, raw)
		}
		if b.decoder != nil {
			raw := rawBytes(v)
			out, err := b.decoder.Bytes(raw)
			if err != nil {
				return models.Column{}, fmt.Errorf("column %s: decode: %w", m.Name, err)
			}
			return models.NewStringColumn(string(out)), nil
		}
		return stringColumn(v), nil

	case TypeClob, TypeNClob:
		return stringColumn(v), nil

	case TypeSmallInt, TypeTinyInt, TypeInteger, TypeBigInt:
		if v == nil {
			return models.NewNullColumn(models.TypeLong), nil
		}
		if bv, ok := v.(bool); ok {
			if bv {
				return models.NewLongColumn(1), nil
			}
			return models.NewLongColumn(0), nil
		}
		return models.ParseLongColumn(utils.FormatDriverValue(v))

	case TypeNumeric, TypeDecimal, TypeFloat, TypeReal, TypeDouble:
		switch f := v.(type) {
		case nil:
			return models.NewNullColumn(models.TypeDouble), nil
		case float64:
			return models.NewDoubleColumn(f), nil
		case float32:
			// finite float32 keeps its shortest 32-bit text
			if g := float64(f); math.IsInf(g, 0) || math.IsNaN(g) {
				return models.NewDoubleColumn(g), nil
			}
		}
		return models.ParseDoubleColumn(utils.FormatDriverValue(v))

	case TypeTime:
		return dateColumn(v, models.TimeOnly)

	case TypeDate:
		if NormalizeTypeName(m.TypeName) == "YEAR" {
			if v == nil {
				return models.NewNullColumn(models.TypeLong), nil
			}
			year, err := yearOf(v)
			if err != nil {
				return models.Column{}, fmt.Errorf("column %s: %w", m.Name, err)
			}
			return models.NewLongColumn(year), nil
		}
		return dateColumn(v, models.DateOnly)

	case TypeTimestamp:
		return dateColumn(v, models.DateTime)

	case TypeBinary, TypeVarbinary, TypeBlob, TypeLongVarbinary:
		if v == nil {
			return models.NewNullColumn(models.TypeBytes), nil
		}
		return models.NewBytesColumn(rawBytes(v)), nil

	case TypeBoolean, TypeBit:
		if v == nil {
			return models.NewNullColumn(models.TypeBool), nil
		}
		bv, err := boolOf(v)
		if err != nil {
			return models.Column{}, fmt.Errorf("column %s: %w", m.Name, err)
		}
		return models.NewBoolColumn(bv), nil

	case TypeNull:
		if v == nil {
			return models.NewNullColumn(models.TypeString), nil
		}
		return models.NewStringColumn(utils.FormatDriverValue(v)), nil

	case TypeOther:
		return models.Column{}, &UnsupportedTypeError{Column: m.Name, Code: m.Code, TypeName: m.TypeName}

	default:
		return models.Column{}, &UnsupportedTypeError{Column: m.Name, Code: m.Code, TypeName: m.TypeName}
	}
}

func stringColumn(v interface{}) models.Column {
	if v == nil {
		return models.NewNullColumn(models.TypeString)
	}
	return models.NewStringColumn(utils.FormatDriverValue(v))
}

// guidColumn renders a SQL Server GUID, which the driver hands over as 16
// mixed-endian bytes, in its canonical text form.
func guidColumn(m ColumnMeta, raw []byte) (models.Column, error) {
	var id mssql.UniqueIdentifier
	if err := id.Scan(raw); err != nil {
		return models.Column{}, fmt.Errorf("%w: column %s: %v", models.ErrConversion, m.Name, err)
	}
	return models.NewStringColumn(id.String()), nil
}

func rawBytes(v interface{}) []byte {
	switch x := v.(type) {
	case nil:
		return []byte{}
	case []byte:
		return x
	case string:
		return []byte(x)
	default:
		return []byte(utils.FormatDriverValue(x))
	}
}

func dateColumn(v interface{}, kind models.DateKind) (models.Column, error) {
	if v == nil {
		return models.NewNullColumn(models.TypeDate), nil
	}
	t, err := utils.ConvertDateTime(v)
	if err != nil {
		return models.Column{}, err
	}
	return models.NewDateColumn(t, kind), nil
}

func yearOf(v interface{}) (int64, error) {
	if t, ok := v.(time.Time); ok {
		return int64(t.Year()), nil
	}
	return utils.ConvertToInt64(v)
}

func boolOf(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case []byte:
		// BIT(1) arrives as a single raw byte
		if len(x) == 1 && x[0] <= 1 {
			return x[0] == 1, nil
		}
		return strconv.ParseBool(string(x))
	case string:
		return strconv.ParseBool(x)
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}
