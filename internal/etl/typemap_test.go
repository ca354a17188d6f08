package etl

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/models"
)

func TestMandatoryEncodingDecodesRawBytes(t *testing.T) {
	b, err := NewRecordBuilder("ISO-8859-1", &captureCollector{})
	require.NoError(t, err)

	meta := []ColumnMeta{{Name: "name", Code: TypeVarchar, TypeName: "VARCHAR"}}
	rec, err := b.BuildRecord(&captureSender{}, []interface{}{[]byte("café")}, meta)
	require.NoError(t, err)

	s, _ := rec.Column(0).AsString()
	require.Equal(t, "cafÃ©", s)
	require.NotEqual(t, "café", s)

	// the driver's own text is ignored in favour of the raw bytes
	rec, err = b.BuildRecord(&captureSender{}, []interface{}{"café"}, meta)
	require.NoError(t, err)
	s, _ = rec.Column(0).AsString()
	require.Equal(t, "cafÃ©", s)
}

func TestMandatoryEncodingNullIsEmptyString(t *testing.T) {
	b, err := NewRecordBuilder("GBK", &captureCollector{})
	require.NoError(t, err)

	rec, err := b.BuildRecord(&captureSender{}, []interface{}{nil}, []ColumnMeta{{Name: "c", Code: TypeChar}})
	require.NoError(t, err)
	require.False(t, rec.Column(0).IsNull())
	s, _ := rec.Column(0).AsString()
	require.Equal(t, "", s)
}

func TestUnknownEncodingIsConfigError(t *testing.T) {
	_, err := NewRecordBuilder("no-such-charset", &captureCollector{})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestBuildRecordDispatch(t *testing.T) {
	b, err := NewRecordBuilder("", &captureCollector{})
	require.NoError(t, err)

	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	meta := []ColumnMeta{
		{Name: "s", Code: TypeVarchar},
		{Name: "clob", Code: TypeClob},
		{Name: "i", Code: TypeBigInt},
		{Name: "d", Code: TypeDecimal},
		{Name: "f", Code: TypeDouble},
		{Name: "t", Code: TypeTime},
		{Name: "dt", Code: TypeDate, TypeName: "DATE"},
		{Name: "y", Code: TypeDate, TypeName: "YEAR"},
		{Name: "ts", Code: TypeTimestamp},
		{Name: "bin", Code: TypeBlob},
		{Name: "b", Code: TypeBit},
		{Name: "n", Code: TypeNull},
		{Name: "nil_i", Code: TypeInteger},
		{Name: "pos_inf", Code: TypeDouble},
		{Name: "neg_inf", Code: TypeReal},
		{Name: "f32", Code: TypeFloat},
	}
	values := []interface{}{
		[]byte("hello"),
		"long text",
		[]byte("98765432109876543210"),
		[]byte("12.3400"),
		float64(0.5),
		"10:11:12",
		"2024-05-06",
		[]byte("2024"),
		ts,
		[]byte{0xde, 0xad},
		[]byte{1},
		int64(42),
		nil,
		math.Inf(1),
		math.Inf(-1),
		float32(0.1),
	}

	rec, err := b.BuildRecord(&captureSender{}, values, meta)
	require.NoError(t, err)
	require.Equal(t, len(meta), rec.ColumnNumber())

	wantTypes := []models.ColumnType{
		models.TypeString, models.TypeString, models.TypeLong, models.TypeDouble, models.TypeDouble,
		models.TypeDate, models.TypeDate, models.TypeLong, models.TypeDate, models.TypeBytes,
		models.TypeBool, models.TypeString, models.TypeLong, models.TypeDouble, models.TypeDouble,
		models.TypeDouble,
	}
	for i, want := range wantTypes {
		require.Equal(t, want, rec.Column(i).Type(), meta[i].Name)
	}

	s, _ := rec.Column(2).AsString()
	require.Equal(t, "98765432109876543210", s)
	s, _ = rec.Column(3).AsString()
	require.Equal(t, "12.3400", s)
	require.Equal(t, models.TimeOnly, rec.Column(5).DateKind())
	require.Equal(t, models.DateOnly, rec.Column(6).DateKind())
	y, _ := rec.Column(7).AsLong()
	require.Equal(t, int64(2024), y)
	d, _ := rec.Column(8).AsDate()
	require.True(t, ts.Equal(d))
	bv, _ := rec.Column(10).AsBool()
	require.True(t, bv)
	s, _ = rec.Column(11).AsString()
	require.Equal(t, "42", s)
	require.True(t, rec.Column(12).IsNull())
	require.Equal(t, models.TypeLong, rec.Column(12).Type())
	s, _ = rec.Column(13).AsString()
	require.Equal(t, "Infinity", s)
	s, _ = rec.Column(14).AsString()
	require.Equal(t, "-Infinity", s)
	s, _ = rec.Column(15).AsString()
	require.Equal(t, "0.1", s)
}

func TestSQLServerGUIDRendersAsText(t *testing.T) {
	collector := &captureCollector{}
	b, err := NewRecordBuilder("", collector)
	require.NoError(t, err)

	// 6F9619FF-8B86-D011-B42D-00C04FC964FF as the driver hands it over
	raw := []byte{0xFF, 0x19, 0x96, 0x6F, 0x86, 0x8B, 0x11, 0xD0, 0xB4, 0x2D, 0x00, 0xC0, 0x4F, 0xC9, 0x64, 0xFF}
	meta := []ColumnMeta{{Name: "id", Code: ResolveTypeCode(database.SQLServer, "UNIQUEIDENTIFIER"), TypeName: "UNIQUEIDENTIFIER"}}

	rec, err := b.BuildRecord(&captureSender{}, []interface{}{raw}, meta)
	require.NoError(t, err)
	s, _ := rec.Column(0).AsString()
	require.Equal(t, "6F9619FF-8B86-D011-B42D-00C04FC964FF", s)

	rec, err = b.BuildRecord(&captureSender{}, []interface{}{nil}, meta)
	require.NoError(t, err)
	require.True(t, rec.Column(0).IsNull())

	rec, err = b.BuildRecord(&captureSender{}, []interface{}{[]byte{1, 2, 3}}, meta)
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Len(t, collector.recs, 1)
	require.ErrorIs(t, collector.causes[0], models.ErrConversion)
}

func TestUnsupportedTypeAlwaysErrors(t *testing.T) {
	for _, code := range []TypeCode{TypeOther, TypeCode(999)} {
		collector := &captureCollector{}
		b, err := NewRecordBuilder("", collector)
		require.NoError(t, err)

		meta := []ColumnMeta{
			{Name: "id", Code: TypeInteger},
			{Name: "doc", Code: code, TypeName: "JSONB"},
		}
		rec, err := b.BuildRecord(&captureSender{}, []interface{}{int64(1), `{"a":1}`}, meta)
		require.Nil(t, rec)

		var uerr *UnsupportedTypeError
		require.ErrorAs(t, err, &uerr)
		require.Equal(t, "doc", uerr.Column)
		require.True(t, IsDomainError(err))

		// reported as dirty too, with the columns converted so far
		require.Len(t, collector.recs, 1)
		require.Equal(t, 1, collector.recs[0].ColumnNumber())
	}
}

func TestValueErrorDropsRecordAsDirty(t *testing.T) {
	collector := &captureCollector{}
	b, err := NewRecordBuilder("", collector)
	require.NoError(t, err)

	meta := []ColumnMeta{{Name: "s", Code: TypeVarchar}, {Name: "n", Code: TypeInteger}, {Name: "x", Code: TypeVarchar}}
	rec, err := b.BuildRecord(&captureSender{}, []interface{}{"a", "not a number", "b"}, meta)
	require.NoError(t, err)
	require.Nil(t, rec)

	require.Len(t, collector.recs, 1)
	require.Equal(t, 1, collector.recs[0].ColumnNumber())
	require.True(t, errors.Is(collector.causes[0], models.ErrConversion))
}

func TestResolveTypeCode(t *testing.T) {
	tests := []struct {
		kind database.Kind
		name string
		want TypeCode
	}{
		{database.MySQL, "VARCHAR", TypeVarchar},
		{database.MySQL, "UNSIGNED BIGINT", TypeBigInt},
		{database.MySQL, "int(11) unsigned", TypeInteger},
		{database.MySQL, "YEAR", TypeDate},
		{database.MySQL, "LONGBLOB", TypeLongVarbinary},
		{database.PostgreSQL, "INT8", TypeBigInt},
		{database.PostgreSQL, "TIMESTAMPTZ", TypeTimestamp},
		{database.PostgreSQL, "UUID", TypeOther},
		{database.SQLServer, "NVARCHAR", TypeNVarchar},
		{database.SQLServer, "DATETIME2", TypeTimestamp},
		{database.SQLServer, "UNIQUEIDENTIFIER", TypeChar},
		{database.SQLite, "", TypeNull},
		{database.SQLite, "VARCHAR(20)", TypeVarchar},
		{database.SQLite, "MEDIUMINT", TypeBigInt},
		{database.SQLite, "NATIVE CHARACTER(70)", TypeVarchar},
		{database.SQLite, "FLOATING POINT", TypeBigInt}, // INT wins, as in sqlite
		{database.SQLite, "DOUBLE PRECISION", TypeDouble},
		{database.MySQL, "GEOGRAPHY_THING", TypeOther},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ResolveTypeCode(tt.kind, tt.name), "%s %q", tt.kind, tt.name)
	}
	require.Equal(t, "LONGVARBINARY", TypeLongVarbinary.String())
}
