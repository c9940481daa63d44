package mirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoDest mirrors into MongoDB collections. Each entity is upserted whole
// by id; since only this process pushes, the last push wins.
type mongoDest struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo opens a MongoDB mirror destination.
func NewMongo(uri, dbName string) (Destination, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo mirror: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo mirror: %w", err)
	}
	return &mongoDest{client: client, db: client.Database(dbName)}, nil
}

func (d *mongoDest) Name() string { return "mongodb" }

func (d *mongoDest) Push(ctx context.Context, batch Batch) (int, error) {
	pushed := 0
	opts := options.Replace().SetUpsert(true)

	for _, nb := range batch.Notebooks {
		doc := bson.M{
			"_id":        nb.ID,
			"name":       nb.Name,
			"parent_id":  nb.ParentID,
			"created_at": nb.CreatedAt,
			"updated_at": nb.UpdatedAt,
		}
		if _, err := d.db.Collection("notebooks").ReplaceOne(ctx, bson.M{"_id": nb.ID}, doc, opts); err != nil {
			return pushed, fmt.Errorf("notebook %s: %w", nb.ID, err)
		}
		pushed++
	}
	for _, n := range batch.Notes {
		doc := bson.M{
			"_id":             n.ID,
			"notebook_id":     n.NotebookID,
			"title":           n.Title,
			"content":         n.Content,
			"recognized_text": n.RecognizedText,
			"tags":            strings.Join(n.Tags, ","),
			"created_at":      n.CreatedAt,
			"updated_at":      n.UpdatedAt,
		}
		if _, err := d.db.Collection("notes").ReplaceOne(ctx, bson.M{"_id": n.ID}, doc, opts); err != nil {
			return pushed, fmt.Errorf("note %s: %w", n.ID, err)
		}
		pushed++
	}
	for _, t := range batch.Tags {
		doc := bson.M{"_id": t.ID, "name": t.Name, "created_at": t.CreatedAt}
		if _, err := d.db.Collection("tags").ReplaceOne(ctx, bson.M{"_id": t.ID}, doc, opts); err != nil {
			return pushed, fmt.Errorf("tag %s: %w", t.ID, err)
		}
		pushed++
	}
	return pushed, nil
}

func (d *mongoDest) Close() error {
	return d.client.Disconnect(context.Background())
}
