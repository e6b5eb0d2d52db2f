// Package mongo stores pixel books in a MongoDB collection.
//
// Each book is one document keyed by filename. The pixel data is kept as
// a single binary field holding the exact .pxl encoding, so a document's
// data field can be written to disk and opened as a regular book file.
package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/codec"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultDatabase   = "pixl"
	DefaultCollection = "books"
)

// Config selects the server and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type document struct {
	Filename string    `bson:"filename"`
	Width    int       `bson:"width"`
	Height   int       `bson:"height"`
	Frames   int       `bson:"frames"`
	Data     []byte    `bson:"data,omitempty"`
	Size     int64     `bson:"size"`
	Created  time.Time `bson:"created"`
	Modified time.Time `bson:"modified"`
}

// Store implements library.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to MongoDB, verifies the connection and ensures a unique
// index on filename.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}
	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "filename", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return s, nil
}

// List returns every stored book without its pixel data, sorted by name.
func (s *Store) List(ctx context.Context) ([]codec.Info, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: "data", Value: 0}}).
		SetSort(bson.D{{Key: "filename", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	infos := make([]codec.Info, 0, len(docs))
	for _, d := range docs {
		frames := d.Frames
		if frames <= 0 {
			frames = codec.DefaultFrameCount
		}
		infos = append(infos, codec.Info{
			Filename: d.Filename,
			Size:     d.Size,
			Created:  d.Created.UTC(),
			Modified: d.Modified.UTC(),
			Frames:   frames,
		})
	}
	return infos, nil
}

// Load decodes the named book. A missing document returns an error
// satisfying errors.Is(err, fs.ErrNotExist).
func (s *Store) Load(ctx context.Context, filename string) (*book.Book, error) {
	var d document
	err := s.coll.FindOne(ctx, bson.D{{Key: "filename", Value: filename}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load %s: %w", filename, fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	return codec.Decode(bytes.NewReader(d.Data), filename)
}

// Save upserts the book, keeping the original creation time.
func (s *Store) Save(ctx context.Context, b *book.Book) error {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, b); err != nil {
		return err
	}

	now := time.Now().UTC()
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "width", Value: int(b.Width)},
			{Key: "height", Value: int(b.Height)},
			{Key: "frames", Value: b.FrameCount()},
			{Key: "data", Value: buf.Bytes()},
			{Key: "size", Value: int64(buf.Len())},
			{Key: "modified", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "created", Value: now},
		}},
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "filename", Value: b.Filename}},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

// Exists reports whether a document for filename exists.
func (s *Store) Exists(ctx context.Context, filename string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "filename", Value: filename}}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
