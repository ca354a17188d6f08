package etl

import (
	"strings"

	"github.com/BartekS5/rdbsync/pkg/database"
)

// TypeCode is the closed set of source column types the reader understands.
type TypeCode int

const (
	TypeOther TypeCode = iota
	TypeChar
	TypeNChar
	TypeVarchar
	TypeLongVarchar
	TypeNVarchar
	TypeLongNVarchar
	TypeClob
	TypeNClob
	TypeSmallInt
	TypeTinyInt
	TypeInteger
	TypeBigInt
	TypeNumeric
	TypeDecimal
	TypeFloat
	TypeReal
	TypeDouble
	TypeTime
	TypeDate
	TypeTimestamp
	TypeBinary
	TypeVarbinary
	TypeBlob
	TypeLongVarbinary
	TypeBoolean
	TypeBit
	TypeNull
)

var typeCodeNames = [...]string{
	TypeOther:         "OTHER",
	TypeChar:          "CHAR",
	TypeNChar:         "NCHAR",
	TypeVarchar:       "VARCHAR",
	TypeLongVarchar:   "LONGVARCHAR",
	TypeNVarchar:      "NVARCHAR",
	TypeLongNVarchar:  "LONGNVARCHAR",
	TypeClob:          "CLOB",
	TypeNClob:         "NCLOB",
	TypeSmallInt:      "SMALLINT",
	TypeTinyInt:       "TINYINT",
	TypeInteger:       "INTEGER",
	TypeBigInt:        "BIGINT",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeFloat:         "FLOAT",
	TypeReal:          "REAL",
	TypeDouble:        "DOUBLE",
	TypeTime:          "TIME",
	TypeDate:          "DATE",
	TypeTimestamp:     "TIMESTAMP",
	TypeBinary:        "BINARY",
	TypeVarbinary:     "VARBINARY",
	TypeBlob:          "BLOB",
	TypeLongVarbinary: "LONGVARBINARY",
	TypeBoolean:       "BOOLEAN",
	TypeBit:           "BIT",
	TypeNull:          "NULL",
}

func (c TypeCode) String() string {
	if c >= 0 && int(c) < len(typeCodeNames) {
		return typeCodeNames[c]
	}
	return "UNKNOWN"
}

var commonTypes = map[string]TypeCode{
	"CHAR":             TypeChar,
	"CHARACTER":        TypeChar,
	"NCHAR":            TypeNChar,
	"VARCHAR":          TypeVarchar,
	"NVARCHAR":         TypeNVarchar,
	"TEXT":             TypeLongVarchar,
	"CLOB":             TypeClob,
	"NCLOB":            TypeNClob,
	"SMALLINT":         TypeSmallInt,
	"TINYINT":          TypeTinyInt,
	"INT":              TypeInteger,
	"INTEGER":          TypeInteger,
	"BIGINT":           TypeBigInt,
	"NUMERIC":          TypeNumeric,
	"DECIMAL":          TypeDecimal,
	"FLOAT":            TypeFloat,
	"REAL":             TypeReal,
	"DOUBLE":           TypeDouble,
	"DOUBLE PRECISION": TypeDouble,
	"TIME":             TypeTime,
	"DATE":             TypeDate,
	"TIMESTAMP":        TypeTimestamp,
	"DATETIME":         TypeTimestamp,
	"BINARY":           TypeBinary,
	"VARBINARY":        TypeVarbinary,
	"BLOB":             TypeBlob,
	"BOOLEAN":          TypeBoolean,
	"BOOL":             TypeBoolean,
	"BIT":              TypeBit,
	"NULL":             TypeNull,
}

var dialectTypes = map[database.Kind]map[string]TypeCode{
	database.MySQL: {
		"MEDIUMINT":  TypeInteger,
		"YEAR":       TypeDate,
		"TINYTEXT":   TypeVarchar,
		"MEDIUMTEXT": TypeLongVarchar,
		"LONGTEXT":   TypeLongVarchar,
		"JSON":       TypeLongVarchar,
		"ENUM":       TypeChar,
		"SET":        TypeChar,
		"TINYBLOB":   TypeBinary,
		"MEDIUMBLOB": TypeLongVarbinary,
		"LONGBLOB":   TypeLongVarbinary,
		"GEOMETRY":   TypeBinary,
	},
	database.PostgreSQL: {
		"INT2":        TypeSmallInt,
		"INT4":        TypeInteger,
		"INT8":        TypeBigInt,
		"SERIAL":      TypeInteger,
		"BIGSERIAL":   TypeBigInt,
		"FLOAT4":      TypeReal,
		"FLOAT8":      TypeDouble,
		"MONEY":       TypeDouble,
		"BPCHAR":      TypeChar,
		"NAME":        TypeVarchar,
		"TIMETZ":      TypeTime,
		"TIMESTAMPTZ": TypeTimestamp,
		"BYTEA":       TypeBinary,
		"BIT":         TypeBit,
		"VARBIT":      TypeOther,
		"UUID":        TypeOther,
		"JSON":        TypeOther,
		"JSONB":       TypeOther,
		"INTERVAL":    TypeOther,
	},
	database.SQLServer: {
		"MONEY":            TypeDecimal,
		"SMALLMONEY":       TypeDecimal,
		"DATETIME2":        TypeTimestamp,
		"SMALLDATETIME":    TypeTimestamp,
		"DATETIMEOFFSET":   TypeOther,
		"NTEXT":            TypeLongNVarchar,
		"TEXT":             TypeLongVarchar,
		"IMAGE":            TypeLongVarbinary,
		"UNIQUEIDENTIFIER": TypeChar,
		"XML":              TypeLongNVarchar,
		"SQL_VARIANT":      TypeOther,
	},
	database.SQLite: {
		"":        TypeNull,
		"NUMERIC": TypeNumeric,
		"STRING":  TypeVarchar,
	},
}

// NormalizeTypeName upper-cases a declared type and drops its size
// arguments and signedness, e.g. "int(11) unsigned" becomes "INT".
func NormalizeTypeName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		if j := strings.IndexByte(n[i:], ')'); j >= 0 {
			n = n[:i] + n[i+j+1:]
		} else {
			n = n[:i]
		}
	}
	n = strings.ReplaceAll(n, "UNSIGNED", "")
	n = strings.ReplaceAll(n, "ZEROFILL", "")
	return strings.Join(strings.Fields(n), " ")
}

// ResolveTypeCode maps a driver-reported type name to its TypeCode.
// Unrecognized names resolve to TypeOther.
func ResolveTypeCode(kind database.Kind, typeName string) TypeCode {
	n := NormalizeTypeName(typeName)
	if code, ok := dialectTypes[kind][n]; ok {
		return code
	}
	if code, ok := commonTypes[n]; ok {
		return code
	}
	if kind == database.SQLite {
		return sqliteAffinity(n)
	}
	return TypeOther
}

// sqliteAffinity applies SQLite's column affinity rules to free-form
// declared types.
func sqliteAffinity(n string) TypeCode {
	switch {
	case strings.Contains(n, "INT"):
		return TypeBigInt
	case strings.Contains(n, "CHAR"), strings.Contains(n, "CLOB"), strings.Contains(n, "TEXT"):
		return TypeVarchar
	case strings.Contains(n, "BLOB"):
		return TypeBlob
	case strings.Contains(n, "REAL"), strings.Contains(n, "FLOA"), strings.Contains(n, "DOUB"):
		return TypeDouble
	}
	return TypeOther
}
