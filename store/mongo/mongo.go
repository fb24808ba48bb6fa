// Package mongo is a dedup store backed by MongoDB, one collection per
// provider namespace.
package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/store"
)

// document is the persisted shape of a news item
type document struct {
	NewsID    string    `bson:"news_id"`
	Date      string    `bson:"date"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

type Mongo struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	prefix string

	mu      sync.Mutex
	indexed map[string]bool
}

var _ store.Store = (*Mongo)(nil)

// New connects and pings. Collections are named prefix + namespace,
// e.g. "original_Zacks".
func New(ctx context.Context, uri, database, prefix string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Mongo{
		client:  cli,
		db:      cli.Database(database),
		prefix:  prefix,
		indexed: make(map[string]bool),
	}, nil
}

// collection returns the namespace collection, creating its unique
// news_id index on first use
func (m *Mongo) collection(ctx context.Context, namespace string) (*mongodriver.Collection, error) {
	coll := m.db.Collection(m.prefix + namespace)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexed[namespace] {
		return coll, nil
	}

	_, err := coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "news_id", Value: 1}},
		Options: options.Index().SetName("news_id_unique").SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongo ensure index on %s: %w", coll.Name(), err)
	}
	m.indexed[namespace] = true
	return coll, nil
}

func (m *Mongo) Exists(ctx context.Context, namespace, id string) (bool, error) {
	coll, err := m.collection(ctx, namespace)
	if err != nil {
		return false, err
	}

	n, err := coll.CountDocuments(ctx, bson.M{"news_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo look up %s/%s: %w", namespace, id, err)
	}
	return n > 0, nil
}

func (m *Mongo) Insert(ctx context.Context, namespace string, item types.NewsItem) error {
	coll, err := m.collection(ctx, namespace)
	if err != nil {
		return err
	}

	_, err = coll.InsertOne(ctx, document{
		NewsID:    item.ID,
		Date:      item.PublishDate,
		Title:     item.Title,
		Content:   item.Content,
		CreatedAt: time.Now().UTC(),
	})
	if mongodriver.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mongo insert %s/%s: %w", namespace, item.ID, err)
	}
	return nil
}

func (m *Mongo) Count(ctx context.Context, namespace string) (int64, error) {
	n, err := m.db.Collection(m.prefix+namespace).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo count %s: %w", namespace, err)
	}
	return n, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
