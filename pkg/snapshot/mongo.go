package snapshot

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "azdiagram"
	MongoCollectionHistory = "generations"
)

// MongoStore keeps generations in a MongoDB collection with a unique
// (name, seq) index.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and ensures the index. An empty database
// selects DefaultMongoDatabase.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	s := NewMongoStoreFromClient(client, database)
	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "seq", Value: -1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create history index: %w", err)
	}
	return s, nil
}

// NewMongoStoreFromClient wraps an existing client.
func NewMongoStoreFromClient(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(MongoCollectionHistory),
	}
}

// Record retries once on a duplicate key, which means another writer took
// the same sequence number.
func (s *MongoStore) Record(ctx context.Context, g *Generation) error {
	var err error
	for range 2 {
		var latest *Generation
		latest, err = s.Latest(ctx, g.Name)
		if err != nil {
			return err
		}
		next := 1
		if latest != nil {
			next = latest.Seq + 1
		}
		g.assign(next)
		if _, err = s.coll.InsertOne(ctx, g); err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return fmt.Errorf("insert generation: %w", err)
}

func (s *MongoStore) Latest(ctx context.Context, name string) (*Generation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var g Generation
	err := s.coll.FindOne(ctx, bson.M{"name": name}, opts).Decode(&g)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest generation: %w", err)
	}
	return &g, nil
}

func (s *MongoStore) Get(ctx context.Context, name string, seq int) (*Generation, error) {
	var g Generation
	err := s.coll.FindOne(ctx, bson.M{"name": name, "seq": seq}).Decode(&g)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find generation: %w", err)
	}
	return &g, nil
}

func (s *MongoStore) List(ctx context.Context, name string, limit int) ([]Generation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(listLimit(limit)))
	cur, err := s.coll.Find(ctx, bson.M{"name": name}, opts)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	var out []Generation
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
