package storage

import (
	"context"
	"fmt"
	"reflect"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Index is a named secondary index. The inverted map accelerates equality
// lookups on the index's leading key field; the full spec is retained so the
// index can be listed back exactly as declared.
type Index struct {
	Spec     domain.IndexSpec
	Field    string // leading key field the inverted map is built on
	Inverted map[interface{}][]string
}

func newIndex(spec domain.IndexSpec) *Index {
	return &Index{
		Spec:     spec,
		Field:    spec.Keys[0].Field,
		Inverted: make(map[interface{}][]string),
	}
}

// build indexes every document currently in the collection.
func (idx *Index) build(coll *collectionData) {
	for docID, doc := range coll.docs {
		if val, ok := lookupPath(doc, idx.Field); ok && indexable(val) {
			idx.Inverted[val] = append(idx.Inverted[val], docID)
		}
	}
}

// update maintains the index across an insert, update, or delete. A nil
// oldDoc means insert; a nil newDoc means delete.
func (idx *Index) update(docID string, oldDoc, newDoc Document) {
	if oldDoc != nil {
		if oldVal, ok := lookupPath(oldDoc, idx.Field); ok && indexable(oldVal) {
			docList := idx.Inverted[oldVal]
			for i, id := range docList {
				if id == docID {
					idx.Inverted[oldVal] = append(docList[:i], docList[i+1:]...)
					break
				}
			}
		}
	}
	if newDoc != nil {
		if newVal, ok := lookupPath(newDoc, idx.Field); ok && indexable(newVal) {
			idx.Inverted[newVal] = append(idx.Inverted[newVal], docID)
		}
	}
}

// query returns document IDs with the given value in the leading key field.
func (idx *Index) query(value interface{}) []string {
	if !indexable(value) {
		return nil
	}
	return idx.Inverted[value]
}

// indexable reports whether a value can serve as an inverted-map key.
// Documents and arrays are matched by scan instead.
func indexable(value interface{}) bool {
	if value == nil {
		return false
	}
	return reflect.TypeOf(value).Comparable()
}

// ListIndexes returns the collection's indexes, the implicit primary-key
// index first, then secondary indexes in creation order.
func (c *Collection) ListIndexes(_ context.Context) ([]domain.ExistingIndex, error) {
	coll := c.data()
	coll.mu.RLock()
	defer coll.mu.RUnlock()

	out := []domain.ExistingIndex{{
		Name: domain.PrimaryKeyIndexName,
		Keys: []domain.IndexKey{{Field: "_id", Type: domain.IndexAscending}},
	}}
	for _, spec := range coll.specs {
		out = append(out, domain.ExistingIndex{
			Name:    spec.Name,
			Keys:    spec.Keys,
			Options: spec.Options,
		})
	}
	return out, nil
}

// CreateIndex creates a named secondary index and builds it over the
// existing documents. Re-creating an identical index is a no-op, matching
// server behavior; reusing a name for a different definition is a conflict
// the caller must treat as non-fatal when racing a peer.
func (c *Collection) CreateIndex(_ context.Context, spec domain.IndexSpec) error {
	if len(spec.Keys) == 0 {
		return fmt.Errorf("index on collection %s must have at least one key", c.name)
	}
	spec.Name = spec.ResolvedName()
	if spec.Name == domain.PrimaryKeyIndexName {
		return fmt.Errorf("cannot create index %s: reserved for the primary key", spec.Name)
	}

	coll := c.data()
	coll.mu.Lock()

	if existing, ok := coll.indexes[spec.Name]; ok {
		same := sameIndexDefinition(existing.Spec, spec)
		coll.mu.Unlock()
		if same {
			return nil
		}
		return fmt.Errorf("index %s already exists on collection %s with a different definition", spec.Name, c.name)
	}

	idx := newIndex(spec)
	idx.build(coll)
	coll.indexes[spec.Name] = idx
	coll.specs = append(coll.specs, spec)
	coll.dirty = true
	coll.mu.Unlock()

	return c.saveAfterWrite()
}

// DropIndex removes a secondary index by name. The primary-key index can
// never be dropped.
func (c *Collection) DropIndex(_ context.Context, name string) error {
	if name == domain.PrimaryKeyIndexName {
		return fmt.Errorf("cannot drop index %s on collection %s", name, c.name)
	}

	coll := c.data()
	coll.mu.Lock()

	if _, ok := coll.indexes[name]; !ok {
		coll.mu.Unlock()
		return fmt.Errorf("index not found with name %s on collection %s", name, c.name)
	}
	delete(coll.indexes, name)
	for i, spec := range coll.specs {
		if spec.Name == name {
			coll.specs = append(coll.specs[:i], coll.specs[i+1:]...)
			break
		}
	}
	coll.dirty = true
	coll.mu.Unlock()

	return c.saveAfterWrite()
}

// sameIndexDefinition compares two specs the way the diff does: key
// sequence in order plus normalized options.
func sameIndexDefinition(a, b domain.IndexSpec) bool {
	if len(a.Keys) != len(b.Keys) {
		return false
	}
	for i := range a.Keys {
		if a.Keys[i] != b.Keys[i] {
			return false
		}
	}
	return reflect.DeepEqual(normalizeIndexOptions(a.Options), normalizeIndexOptions(b.Options))
}

func normalizeIndexOptions(opts domain.IndexOptions) domain.IndexOptions {
	if len(opts.Weights) == 0 {
		opts.Weights = nil
	}
	return opts
}
