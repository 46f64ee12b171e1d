package storage

import "github.com/adfharrison1/go-odm/pkg/domain"

// Collection is a handle to one collection of the embedded engine. It
// implements domain.CollectionHandle plus a few document helpers used by
// tests and the demo service.
type Collection struct {
	engine *StorageEngine
	name   string
}

var _ domain.CollectionHandle = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// data returns the backing collection data, creating it on first use. An
// empty collection behaves like an empty server-side collection: it exists
// as soon as it is touched and always carries the implicit _id index.
func (c *Collection) data() *collectionData {
	return c.engine.getOrCreateCollection(c.name)
}

// saveAfterWrite persists the collection if transaction saves are enabled.
func (c *Collection) saveAfterWrite() error {
	if !c.engine.transactionSave || c.engine.dataFile == "" {
		return nil
	}
	return c.engine.SaveToFile(c.engine.dataFile)
}
