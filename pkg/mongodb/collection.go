package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Collection implements domain.CollectionHandle over a driver collection.
type Collection struct {
	coll *mongo.Collection
}

var _ domain.CollectionHandle = (*Collection)(nil)

func (c *Collection) Name() string {
	return c.coll.Name()
}

// ListIndexes reads the live index state of the collection, preserving the
// key order reported by the server.
func (c *Collection) ListIndexes(ctx context.Context) ([]domain.ExistingIndex, error) {
	cursor, err := c.coll.Indexes().List(ctx)
	if err != nil {
		return nil, &domain.ConnectivityError{Op: "listIndexes", Err: err}
	}
	var docs []indexDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &domain.ConnectivityError{Op: "listIndexes", Err: err}
	}

	existing := make([]domain.ExistingIndex, 0, len(docs))
	for _, doc := range docs {
		idx, err := existingFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to interpret index %q on collection %q: %w", doc.Name, c.Name(), err)
		}
		existing = append(existing, idx)
	}
	return existing, nil
}

func (c *Collection) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	_, err := c.coll.Indexes().CreateOne(ctx, indexModel(spec))
	return err
}

func (c *Collection) DropIndex(ctx context.Context, name string) error {
	_, err := c.coll.Indexes().DropOne(ctx, name)
	return err
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update interface{}) (*domain.UpdateResult, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &domain.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}
