package etl

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/rdbsync/pkg/logger"
	"github.com/BartekS5/rdbsync/pkg/models"
)

// MongoWriter stores records as documents. With an IDField set it upserts
// on that field, otherwise it inserts.
type MongoWriter struct {
	Collection *mongo.Collection
	Fields     []string
	IDField    string
	Timeout    time.Duration
}

func NewMongoWriter(client *mongo.Client, database, collection string, fields []string, idField string) *MongoWriter {
	return &MongoWriter{
		Collection: client.Database(database).Collection(collection),
		Fields:     fields,
		IDField:    idField,
		Timeout:    30 * time.Second,
	}
}

func (m *MongoWriter) WriteBatch(ctx context.Context, recs []*models.Record) error {
	writes := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		doc, err := RecordToDocument(rec, m.Fields)
		if err != nil {
			return err
		}

		if m.IDField == "" {
			writes = append(writes, mongo.NewInsertOneModel().SetDocument(doc))
			continue
		}

		idVal, ok := lookup(doc, m.IDField)
		if !ok || idVal == nil {
			return fmt.Errorf("record %s has no value for id field %q", rec, m.IDField)
		}
		filter := bson.M{m.IDField: idVal}
		update := bson.M{"$set": doc}
		writes = append(writes, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}

	if len(writes) == 0 {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	res, err := m.Collection.BulkWrite(writeCtx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("mongo bulk write to %s: %w", m.Collection.Name(), err)
	}
	logger.Debugf("Mongo BulkWrite: Insert %d, Match %d, Mod %d, Upsert %d",
		res.InsertedCount, res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return nil
}

// Close is a no-op; the client belongs to the job.
func (m *MongoWriter) Close(context.Context) error { return nil }

func lookup(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
