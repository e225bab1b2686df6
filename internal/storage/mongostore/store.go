// Package mongostore is the MongoDB-backed persistence layer: four
// collections (products, user_sessions, session_history, interactions)
// per spec.md §6's "Persisted state layout", with the secondary indexes
// that layout requires.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	ColProducts       = "products"
	ColUserSessions   = "user_sessions"
	ColSessionHistory = "session_history"
	ColInteractions   = "interactions"
)

// Store is the MongoDB driver for the recommendation engine's domain
// collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and selects dbName, creating indexes before
// returning. uri is typically MONGODB_URI from config.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongostore: ensure indexes: %w", err)
	}

	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(closeCtx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes creates every secondary key spec.md §6 requires.
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		// product_id is stored as _id, which Mongo already indexes
		// uniquely; only the candidate-filtering compound index below
		// is needed.
		{ColProducts, bson.D{
			{Key: "category_main", Value: 1},
			{Key: "brand", Value: 1},
			{Key: "primary_color", Value: 1},
			{Key: "price", Value: 1},
		}, false},

		// session_id is stored as _id.
		{ColUserSessions, bson.D{{Key: "user_id", Value: 1}}, false},

		{ColSessionHistory, bson.D{
			{Key: "session_id", Value: 1},
			{Key: "shown_at", Value: -1},
		}, false},
		{ColSessionHistory, bson.D{
			{Key: "session_id", Value: 1},
			{Key: "product_id", Value: 1},
		}, false},

		{ColInteractions, bson.D{{Key: "session_id", Value: 1}}, false},
		{ColInteractions, bson.D{{Key: "timestamp", Value: -1}}, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
