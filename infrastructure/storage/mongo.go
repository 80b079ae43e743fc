package storage

import (
	"chat-room/contract"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

// MongoStore keeps the messages collection in MongoDB.
// Listening relies on change streams, the server must run as a replica set.
type MongoStore struct {
	collection *mongo.Collection
	log        *slog.Logger
}

// NewMongoStore creates the descending createdAt index used by the recent window.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string, log *slog.Logger) (*MongoStore, error) {
	collection := client.Database(database).Collection(messagesCollection)
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: contract.FieldCreatedAt, Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s index: %w", contract.FieldCreatedAt, err)
	}
	return &MongoStore{collection: collection, log: log}, nil
}

func (s *MongoStore) Query(ctx context.Context, q contract.Query) ([]contract.Record, error) {
	direction := 1
	if q.Descending {
		direction = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: q.OrderBy, Value: direction}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var documents []bson.M
	if err = cursor.All(ctx, &documents); err != nil {
		return nil, err
	}
	return lo.Map(documents, func(doc bson.M, _ int) contract.Record {
		return fromDocument(doc)
	}), nil
}

func (s *MongoStore) Add(ctx context.Context, r contract.Record) error {
	_, err := s.collection.InsertOne(ctx, bson.M(r))
	return err
}

// Listen watches the collection and reruns the query on every change event.
func (s *MongoStore) Listen(ctx context.Context, q contract.Query) (contract.Listener, error) {
	stream, err := s.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("opening change stream: %w", err)
	}
	initial, err := s.Query(ctx, q)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}
	listenCtx, cancel := context.WithCancel(ctx)
	feed := newChangeFeed(cancel)
	feed.publish(initial)

	go func() {
		defer func() {
			_ = stream.Close(context.Background())
		}()
		for stream.Next(listenCtx) {
			records, err := s.Query(listenCtx, q)
			if err != nil {
				feed.finish(err)
				return
			}
			feed.publish(records)
		}
		feed.finish(stream.Err())
	}()
	return feed, nil
}

// fromDocument drops the mongo _id and turns BSON datetimes back into time.Time.
func fromDocument(doc bson.M) contract.Record {
	r := make(contract.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		switch val := v.(type) {
		case primitive.DateTime:
			r[k] = val.Time().UTC()
		default:
			r[k] = v
		}
	}
	return r
}
