package storage

import (
	"context"
	"fmt"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// InsertOne inserts a document into the collection, generating an _id when
// the document does not carry one. Returns the document ID.
func (c *Collection) InsertOne(_ context.Context, doc Document) (string, error) {
	coll := c.data()
	coll.mu.Lock()

	var id string
	if raw, ok := doc["_id"]; ok {
		id = fmt.Sprintf("%v", raw)
	} else {
		coll.nextID++
		id = fmt.Sprintf("%d", coll.nextID)
		doc["_id"] = id
	}
	if _, exists := coll.docs[id]; exists {
		coll.mu.Unlock()
		return "", fmt.Errorf("duplicate _id %s in collection %s", id, c.name)
	}

	for _, idx := range coll.indexes {
		idx.update(id, nil, doc)
	}
	coll.docs[id] = doc
	coll.order = append(coll.order, id)
	coll.dirty = true
	coll.mu.Unlock()

	return id, c.saveAfterWrite()
}

// InsertMany inserts documents in order, stopping at the first failure.
func (c *Collection) InsertMany(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		if _, err := c.InsertOne(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// Find returns documents matching the filter, in insertion order. A nil
// filter matches everything. Equality conditions on an indexed leading key
// are answered from the inverted index; everything else scans.
func (c *Collection) Find(_ context.Context, filter interface{}) ([]Document, error) {
	conds, err := filterEntries(filter)
	if err != nil {
		return nil, err
	}

	coll := c.data()
	coll.mu.RLock()
	defer coll.mu.RUnlock()

	var results []Document
	for _, id := range c.candidateIDs(coll, conds) {
		doc, ok := coll.docs[id]
		if !ok {
			continue
		}
		if matchesConditions(doc, conds) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// Count returns the number of documents matching the filter.
func (c *Collection) Count(ctx context.Context, filter interface{}) (int64, error) {
	docs, err := c.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

// UpdateMany applies a $set/$unset update to every document matching the
// filter in one pass. Each document mutates atomically under the collection
// lock; there is no atomicity across documents, matching the contract of
// the real store.
func (c *Collection) UpdateMany(_ context.Context, filter, update interface{}) (*domain.UpdateResult, error) {
	conds, err := filterEntries(filter)
	if err != nil {
		return nil, err
	}
	ops, err := updateEntries(update)
	if err != nil {
		return nil, err
	}

	coll := c.data()
	coll.mu.Lock()

	res := &domain.UpdateResult{}
	for _, id := range c.candidateIDs(coll, conds) {
		doc, ok := coll.docs[id]
		if !ok || !matchesConditions(doc, conds) {
			continue
		}
		res.Matched++

		oldDoc := make(Document, len(doc))
		for k, v := range doc {
			oldDoc[k] = v
		}
		if !applyUpdateOps(doc, ops) {
			continue
		}
		res.Modified++
		for _, idx := range coll.indexes {
			idx.update(id, oldDoc, doc)
		}
		coll.dirty = true
	}
	coll.mu.Unlock()

	if res.Modified > 0 {
		if err := c.saveAfterWrite(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// candidateIDs narrows the scan using the first equality condition that has
// a matching index on its field; falls back to every document in insertion
// order. Caller holds the collection lock.
func (c *Collection) candidateIDs(coll *collectionData, conds []condition) []string {
	for _, cond := range conds {
		if cond.op != opEq {
			continue
		}
		for _, idx := range coll.indexes {
			if idx.Field == cond.path {
				// Copy: index maintenance during UpdateMany mutates the
				// backing slice while the caller is still ranging over it.
				return append([]string(nil), idx.query(cond.value)...)
			}
		}
	}
	return coll.order
}
