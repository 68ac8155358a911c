// Package mongo stores site records in a MongoDB collection.
//
// Usage:
//
//	client, _ := mongo.Connect(options.Client().ApplyURI(uri))
//	s := mongostore.New(client.Database("multisite"))
//	if err := s.Migrate(ctx); err != nil { ... }
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrSnakeDoc/multisite/internal/domain"
	"github.com/MrSnakeDoc/multisite/internal/store"
)

// DefaultCollection is the collection holding site records.
const DefaultCollection = "sites"

var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of store.Store.
// The caller owns the client lifecycle.
type Store struct {
	col *mongod.Collection
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	collection string
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(o *storeOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// New creates a store over db.
func New(db *mongod.Database, opts ...Option) *Store {
	o := storeOptions{collection: DefaultCollection}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{col: db.Collection(o.collection)}
}

// Migrate creates the indexes the store relies on.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.col.Indexes().CreateMany(ctx, indexModels()); err != nil {
		return fmt.Errorf("multisite/mongo: migrate indexes: %w", err)
	}
	return nil
}

func indexModels() []mongod.IndexModel {
	return []mongod.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "active", Value: 1}}},
		{
			// Hostnames are stored lower-cased.
			Keys:    bson.D{{Key: "hostname", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

func (s *Store) Find(ctx context.Context, f store.Filter) ([]*domain.Site, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "displayName", Value: 1},
		{Key: "uid", Value: 1},
	})

	cur, err := s.col.Find(ctx, toFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("multisite/mongo: find sites: %w", err)
	}

	var models []siteModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("multisite/mongo: decode sites: %w", err)
	}

	sites := make([]*domain.Site, 0, len(models))
	for i := range models {
		sites = append(sites, fromModel(&models[i]))
	}
	// Mongo sorts case-sensitively; keep the store-wide order.
	store.SortSites(sites)
	return sites, nil
}

func (s *Store) Count(ctx context.Context, f store.Filter) (int, error) {
	n, err := s.col.CountDocuments(ctx, toFilter(f))
	if err != nil {
		return 0, fmt.Errorf("multisite/mongo: count sites: %w", err)
	}
	return int(n), nil
}

func (s *Store) Exists(ctx context.Context, f store.Filter) (bool, error) {
	var m siteModel
	err := s.col.FindOne(ctx, toFilter(f)).Decode(&m)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("multisite/mongo: exists: %w", err)
	}
	return true, nil
}

func (s *Store) Save(ctx context.Context, site *domain.Site) (*domain.Site, error) {
	c := site.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	m := toModel(c)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("multisite/mongo: save site: %w", &domain.CollisionError{})
		}
		return nil, fmt.Errorf("multisite/mongo: save site: %w", err)
	}
	return c, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}

// toFilter compiles a store.Filter to a BSON query. Names and hostnames
// use anchored, case-insensitive regular expressions.
func toFilter(f store.Filter) bson.D {
	q := bson.D{}
	if f.UID != "" {
		q = append(q, bson.E{Key: "uid", Value: f.UID})
	}
	if f.Active != nil {
		q = append(q, bson.E{Key: "active", Value: *f.Active})
	}
	if f.DisplayName != "" {
		q = append(q, bson.E{Key: "displayName", Value: exactFold(f.DisplayName)})
	}
	if f.Hostname != "" {
		q = append(q, bson.E{Key: "hostname", Value: exactFold(f.Hostname)})
	}
	if f.ExcludeID != "" {
		q = append(q, bson.E{Key: "_id", Value: bson.M{"$ne": f.ExcludeID}})
	}
	return q
}

func exactFold(s string) bson.Regex {
	return bson.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	return mongod.IsDuplicateKeyError(err)
}
