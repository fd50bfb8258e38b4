package source

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/errors"
)

// Default MongoDB settings.
const (
	DefaultMongoDatabase   = "loreboard"
	DefaultMongoCollection = "entities"
	DefaultMongoTimeout    = 10 * time.Second
)

// MongoConfig configures a [MongoSource].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration

	// Kinds restricts the source to entities of these kinds. Empty means all.
	Kinds []entity.Kind
}

// ValidateAndSetDefaults checks the URI and fills in missing settings.
func (c *MongoConfig) ValidateAndSetDefaults() error {
	if c.URI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "mongo uri is required")
	}
	if c.Database == "" {
		c.Database = DefaultMongoDatabase
	}
	if c.Collection == "" {
		c.Collection = DefaultMongoCollection
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultMongoTimeout
	}
	return nil
}

// filter returns the query document selecting the configured entities.
func (c MongoConfig) filter() bson.D {
	if len(c.Kinds) == 0 {
		return bson.D{}
	}
	kinds := make(bson.A, len(c.Kinds))
	for i, k := range c.Kinds {
		kinds[i] = string(k)
	}
	return bson.D{{Key: "entity_type", Value: bson.D{{Key: "$in", Value: kinds}}}}
}

// MongoSource reads entities from a MongoDB collection. The collection is
// owned by another service; the source never writes to it.
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    MongoConfig
}

// NewMongoSource connects to MongoDB and verifies the connection.
func NewMongoSource(ctx context.Context, cfg MongoConfig) (*MongoSource, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "connect to mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "ping mongo")
	}

	return &MongoSource{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		cfg:    cfg,
	}, nil
}

// Entities returns every matching entity, oldest first.
func (s *MongoSource) Entities(ctx context.Context) ([]entity.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := s.coll.Find(ctx, s.cfg.filter(), opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "find entities")
	}
	defer cursor.Close(ctx)

	var entities []entity.Entity
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "decode entities")
	}
	if err := entity.Validate(entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// Changes blocks until ctx is done, calling onChange after every insert,
// update, replace or delete in the collection. Change streams require a
// replica set or sharded cluster.
func (s *MongoSource) Changes(ctx context.Context, onChange func()) error {
	stream, err := s.coll.Watch(ctx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.Default))
	if err != nil {
		return errors.Wrap(errors.ErrCodeSourceUnavailable, err, "watch entities")
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		onChange()
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return errors.Wrap(errors.ErrCodeSourceUnavailable, err, "change stream")
	}
	return ctx.Err()
}

// Close disconnects from MongoDB.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
