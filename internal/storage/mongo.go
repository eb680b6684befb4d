package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores every snapshot as one document of the "snapshots" collection, so the data
// stays queryable from the mongo shell.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

type snapshotDoc struct {
	Name      string    `bson:"_id"`
	Data      bson.M    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewMongo(ctx context.Context, uri string, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	if database == "" {
		database = "kinobot"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "mongo ping")
	}
	col := client.Database(database).Collection("snapshots")
	return &Mongo{client: client, col: col}, nil
}

func (m *Mongo) Load(ctx context.Context, name string) ([]byte, error) {
	if m == nil {
		return nil, errors.New("mongo not configured")
	}
	var doc snapshotDoc
	err := m.col.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return emptyObject, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	if doc.Data == nil {
		return emptyObject, nil
	}
	out, err := bson.MarshalExtJSON(doc.Data, false, false)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", name)
	}
	return out, nil
}

func (m *Mongo) Save(ctx context.Context, name string, data []byte) error {
	if m == nil {
		return errors.New("mongo not configured")
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return errors.Wrapf(err, "decode %s", name)
	}
	_, err := m.col.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{
			"data":       doc,
			"updated_at": time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "save %s", name)
}

func (m *Mongo) Close() error {
	if m == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
