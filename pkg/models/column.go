package models

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/rdbsync/pkg/utils"
	"github.com/shopspring/decimal"
)

// ColumnType is the semantic kind of a column.
type ColumnType int

const (
	TypeNull ColumnType = iota
	TypeString
	TypeLong
	TypeDouble
	TypeBool
	TypeDate
	TypeBytes
)

func (t ColumnType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeString:
		return "STRING"
	case TypeLong:
		return "LONG"
	case TypeDouble:
		return "DOUBLE"
	case TypeBool:
		return "BOOL"
	case TypeDate:
		return "DATE"
	case TypeBytes:
		return "BYTES"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// DateKind distinguishes what part of a Date column is meaningful.
type DateKind int

const (
	DateTime DateKind = iota
	DateOnly
	TimeOnly
)

// ErrConversion is wrapped by every failed column conversion.
var ErrConversion = errors.New("column conversion failed")

// Column is a single typed value. The zero value is a null column of TypeNull.
//
// Long and Double columns keep the exact source text so that no precision
// is lost between reader and writer.
type Column struct {
	kind     ColumnType
	raw      interface{}
	dateKind DateKind
}

func NewStringColumn(s string) Column {
	return Column{kind: TypeString, raw: s}
}

func NewLongColumn(v int64) Column {
	return Column{kind: TypeLong, raw: strconv.FormatInt(v, 10)}
}

// ParseLongColumn builds a Long column from integer text of any width.
func ParseLongColumn(text string) (Column, error) {
	canonical, err := utils.IntegerText(text)
	if err != nil {
		return Column{}, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return Column{kind: TypeLong, raw: canonical}, nil
}

func NewDoubleColumn(v float64) Column {
	return Column{kind: TypeDouble, raw: formatFloat(v)}
}

// ParseDoubleColumn builds a Double column from decimal text. NaN and the
// infinities are accepted as written.
func ParseDoubleColumn(text string) (Column, error) {
	text = strings.TrimSpace(text)
	switch text {
	case "NaN", "Infinity", "-Infinity":
		return Column{kind: TypeDouble, raw: text}, nil
	}
	if _, err := decimal.NewFromString(text); err != nil {
		return Column{}, fmt.Errorf("%w: not a decimal: %q", ErrConversion, text)
	}
	return Column{kind: TypeDouble, raw: text}, nil
}

func NewBoolColumn(b bool) Column {
	return Column{kind: TypeBool, raw: b}
}

func NewDateColumn(t time.Time, kind DateKind) Column {
	return Column{kind: TypeDate, raw: t, dateKind: kind}
}

func NewBytesColumn(b []byte) Column {
	return Column{kind: TypeBytes, raw: b}
}

// NewNullColumn returns a column of the given kind without a value.
func NewNullColumn(kind ColumnType) Column {
	return Column{kind: kind}
}

func (c Column) Type() ColumnType   { return c.kind }
func (c Column) DateKind() DateKind { return c.dateKind }
func (c Column) IsNull() bool       { return c.raw == nil }
func (c Column) Raw() interface{}   { return c.raw }

// ByteSize approximates the memory a column accounts for in statistics.
func (c Column) ByteSize() int {
	if c.raw == nil {
		return 0
	}
	switch c.kind {
	case TypeString:
		return len(c.raw.(string))
	case TypeBytes:
		return len(c.raw.([]byte))
	case TypeBool:
		return 1
	default:
		return 8
	}
}

func (c Column) AsString() (string, error) {
	if c.raw == nil {
		return "", nil
	}
	switch c.kind {
	case TypeString, TypeLong, TypeDouble:
		return c.raw.(string), nil
	case TypeBool:
		return strconv.FormatBool(c.raw.(bool)), nil
	case TypeDate:
		t := c.raw.(time.Time)
		switch c.dateKind {
		case DateOnly:
			return t.Format(utils.DateLayout), nil
		case TimeOnly:
			return t.Format(utils.TimeLayout), nil
		default:
			return t.Format(utils.DateTimeLayout), nil
		}
	case TypeBytes:
		return string(c.raw.([]byte)), nil
	}
	return "", c.convErr("STRING")
}

func (c Column) AsBigInt() (*big.Int, error) {
	if c.raw == nil {
		return nil, nil
	}
	switch c.kind {
	case TypeLong:
		n, _ := new(big.Int).SetString(c.raw.(string), 10)
		return n, nil
	case TypeDouble, TypeString:
		d, err := c.AsDecimal()
		if err != nil {
			return nil, err
		}
		return d.BigInt(), nil
	case TypeBool:
		if c.raw.(bool) {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case TypeDate:
		return big.NewInt(c.raw.(time.Time).UnixMilli()), nil
	}
	return nil, c.convErr("LONG")
}

// AsLong fails when the value does not fit into an int64.
func (c Column) AsLong() (int64, error) {
	n, err := c.AsBigInt()
	if err != nil || n == nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("%w: %s overflows LONG", ErrConversion, n.String())
	}
	return n.Int64(), nil
}

func (c Column) AsDecimal() (decimal.Decimal, error) {
	if c.raw == nil {
		return decimal.Zero, nil
	}
	switch c.kind {
	case TypeLong, TypeDouble, TypeString:
		d, err := decimal.NewFromString(strings.TrimSpace(c.raw.(string)))
		if err != nil {
			return decimal.Zero, c.convErr("DECIMAL")
		}
		return d, nil
	case TypeBool:
		if c.raw.(bool) {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case TypeDate:
		return decimal.NewFromInt(c.raw.(time.Time).UnixMilli()), nil
	}
	return decimal.Zero, c.convErr("DECIMAL")
}

func (c Column) AsDouble() (float64, error) {
	if c.raw == nil {
		return 0, nil
	}
	switch c.kind {
	case TypeLong, TypeDouble, TypeString:
		s := strings.TrimSpace(c.raw.(string))
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, c.convErr("DOUBLE")
		}
		return f, nil
	case TypeBool:
		if c.raw.(bool) {
			return 1, nil
		}
		return 0, nil
	case TypeDate:
		return float64(c.raw.(time.Time).UnixMilli()), nil
	}
	return 0, c.convErr("DOUBLE")
}

func (c Column) AsBool() (bool, error) {
	if c.raw == nil {
		return false, nil
	}
	switch c.kind {
	case TypeBool:
		return c.raw.(bool), nil
	case TypeLong:
		return c.raw.(string) != "0", nil
	case TypeString:
		switch strings.ToLower(strings.TrimSpace(c.raw.(string))) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, c.convErr("BOOL")
}

func (c Column) AsDate() (time.Time, error) {
	if c.raw == nil {
		return time.Time{}, nil
	}
	switch c.kind {
	case TypeDate:
		return c.raw.(time.Time), nil
	case TypeLong:
		ms, err := c.AsLong()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms), nil
	case TypeString:
		t, err := utils.ParseDateTime(c.raw.(string))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrConversion, err)
		}
		return t, nil
	}
	return time.Time{}, c.convErr("DATE")
}

func (c Column) AsBytes() ([]byte, error) {
	if c.raw == nil {
		return nil, nil
	}
	switch c.kind {
	case TypeBytes:
		return c.raw.([]byte), nil
	case TypeString:
		return []byte(c.raw.(string)), nil
	}
	return nil, c.convErr("BYTES")
}

func (c Column) String() string {
	if c.raw == nil {
		return "null"
	}
	s, err := c.AsString()
	if err != nil {
		return fmt.Sprintf("%v", c.raw)
	}
	return s
}

func (c Column) convErr(target string) error {
	return fmt.Errorf("%w: %s[%v] to %s", ErrConversion, c.kind, c.raw, target)
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
