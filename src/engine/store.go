package engine

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DocumentStore is the boundary to the external document-store driver. The
// mapper issues insert/replace/find/count calls against named collections and
// gets back native structural values and store-assigned identities. Driver
// failures propagate to callers verbatim; the mapper never retries.
type DocumentStore interface {
	InsertOne(ctx context.Context, collection string, doc bson.M) (primitive.ObjectID, error)
	ReplaceOne(ctx context.Context, collection string, id primitive.ObjectID, doc bson.M) error
	DeleteOne(ctx context.Context, collection string, id primitive.ObjectID) error

	// FindOne returns (nil, nil) when no document matches.
	FindOne(ctx context.Context, collection string, filter bson.D) (bson.M, error)
	Find(ctx context.Context, collection string, filter bson.D, opts *options.FindOptions) ([]bson.M, error)
	Count(ctx context.Context, collection string, filter bson.D) (int64, error)
}

// MongoStore adapts a MongoDB database handle to the DocumentStore boundary.
type MongoStore struct {
	db     *mongo.Database
	logger *zap.SugaredLogger
}

func NewMongoStore(db *mongo.Database, logger *zap.SugaredLogger) *MongoStore {
	return &MongoStore{
		db:     db,
		logger: logger,
	}
}

func (s *MongoStore) InsertOne(ctx context.Context, collection string, doc bson.M) (primitive.ObjectID, error) {
	result, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("store did not assign an object id on insert")
	}
	return oid, nil
}

func (s *MongoStore) ReplaceOne(ctx context.Context, collection string, id primitive.ObjectID, doc bson.M) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	return err
}

func (s *MongoStore) DeleteOne(ctx context.Context, collection string, id primitive.ObjectID) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	return err
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter bson.D) (bson.M, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter bson.D, opts *options.FindOptions) ([]bson.M, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	s.logger.Debugw("find returned", "collection", collection, "rows", len(rows))
	return rows, nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter bson.D) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, filter)
}
