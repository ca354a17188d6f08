package etl

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// RecordToDocument maps a record onto a Mongo document using the writer's
// column names, in order.
func RecordToDocument(rec *models.Record, fields []string) (bson.D, error) {
	doc := make(bson.D, 0, len(fields))
	for i, name := range fields {
		v, err := MongoValue(rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		doc = append(doc, bson.E{Key: name, Value: v})
	}
	return doc, nil
}

// MongoValue converts a column to the BSON value it is stored as. Integers
// that overflow int64 and exact decimals keep full precision as Decimal128.
func MongoValue(c models.Column) (interface{}, error) {
	if c.IsNull() {
		return nil, nil
	}
	switch c.Type() {
	case models.TypeString:
		return c.AsString()
	case models.TypeLong:
		if n, err := c.AsLong(); err == nil {
			return n, nil
		}
		s, _ := c.AsString()
		return primitive.ParseDecimal128(s)
	case models.TypeDouble:
		s, _ := c.AsString()
		if d, err := primitive.ParseDecimal128(s); err == nil {
			return d, nil
		}
		return c.AsDouble()
	case models.TypeBool:
		return c.AsBool()
	case models.TypeDate:
		return c.AsDate()
	case models.TypeBytes:
		b, _ := c.AsBytes()
		return primitive.Binary{Data: b}, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", c.Type())
}

// SQLValue converts a column to a database/sql argument. Decimals travel as
// their exact text.
func SQLValue(c models.Column) (interface{}, error) {
	if c.IsNull() {
		return nil, nil
	}
	switch c.Type() {
	case models.TypeString, models.TypeDouble:
		return c.AsString()
	case models.TypeLong:
		if n, err := c.AsLong(); err == nil {
			return n, nil
		}
		return c.AsString()
	case models.TypeBool:
		return c.AsBool()
	case models.TypeDate:
		return c.AsDate()
	case models.TypeBytes:
		return c.AsBytes()
	}
	return nil, fmt.Errorf("unsupported column type %s", c.Type())
}
