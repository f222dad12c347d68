package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/stravaetl/pkg/logger"
	"github.com/BartekS5/stravaetl/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLoader stores each table as a collection. The primary key becomes _id.
//
// The replace is one ordered bulk write (delete all, then insert). MongoDB
// does not run it atomically: a failure part-way leaves the collection
// partially filled until the next successful run.
type MongoLoader struct {
	Client   *mongo.Client
	Database string
	Log      *logger.Logger
}

func NewMongoLoader(client *mongo.Client, database string, log *logger.Logger) *MongoLoader {
	return &MongoLoader{Client: client, Database: database, Log: log}
}

func (m *MongoLoader) Load(ctx context.Context, table string, schema models.Schema, records []models.Record) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}
	if err := ValidateBatch(schema, records); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}

	writes := make([]mongo.WriteModel, 0, len(records)+1)
	writes = append(writes, mongo.NewDeleteManyModel().SetFilter(bson.D{}))
	for _, r := range records {
		writes = append(writes, mongo.NewInsertOneModel().SetDocument(toBSON(schema, r)))
	}

	coll := m.Client.Database(m.Database).Collection(table)
	res, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to replace collection %s: %w", table, err)
	}

	log := m.Log
	if log == nil {
		log = logger.Nop()
	}
	log.Info().Str("collection", table).Int64("deleted", res.DeletedCount).Int64("inserted", res.InsertedCount).
		Msgf("Mongo BulkWrite: deleted %d, inserted %d", res.DeletedCount, res.InsertedCount)
	return nil
}

// toBSON keeps schema column order; the key column is stored as _id.
func toBSON(schema models.Schema, r models.Record) bson.D {
	values := r.Values()
	doc := make(bson.D, 0, len(schema))
	for i, c := range schema {
		name := c.Name
		if c.PrimaryKey {
			name = "_id"
		}
		doc = append(doc, bson.E{Key: name, Value: values[i]})
	}
	return doc
}
