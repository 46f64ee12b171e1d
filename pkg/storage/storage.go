// Package storage is an embedded, in-memory document backend implementing
// the same collection contract as the real driver adapter. It backs local
// development, the demo binary, and tests that need live index and document
// state without a server.
package storage

import (
	"sync"
	"time"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Document is a schemaless document.
type Document map[string]interface{}

// collectionData holds one collection's documents and secondary indexes.
type collectionData struct {
	mu      sync.RWMutex
	name    string
	docs    map[string]Document
	order   []string // insertion order of document IDs
	specs   []domain.IndexSpec
	indexes map[string]*Index // index name -> inverted index
	nextID  int64
	dirty   bool
}

// StorageEngine is an in-memory multi-collection store with optional
// single-file persistence. It implements domain.Database.
type StorageEngine struct {
	mu          sync.RWMutex
	collections map[string]*collectionData

	// Configuration
	dataFile        string
	backgroundSave  bool
	transactionSave bool
	saveInterval    time.Duration

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
}

// NewStorageEngine creates a new storage engine.
func NewStorageEngine(options ...StorageOption) *StorageEngine {
	engine := &StorageEngine{
		collections:  make(map[string]*collectionData),
		saveInterval: 5 * time.Minute,
		stopChan:     make(chan struct{}),
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// Collection returns a handle for the named collection, creating it on
// first use. The embedded engine is single-node, so the consistency and
// routing policies in cfg have nothing to select between and are accepted
// unused.
func (se *StorageEngine) Collection(name string, _ domain.CollectionConfig) domain.CollectionHandle {
	return &Collection{engine: se, name: name}
}

// getOrCreateCollection returns the data for a collection, creating an
// empty one if needed.
func (se *StorageEngine) getOrCreateCollection(name string) *collectionData {
	se.mu.RLock()
	if coll, exists := se.collections[name]; exists {
		se.mu.RUnlock()
		return coll
	}
	se.mu.RUnlock()

	se.mu.Lock()
	defer se.mu.Unlock()

	// Double-check in case another goroutine created it
	if coll, exists := se.collections[name]; exists {
		return coll
	}

	coll := &collectionData{
		name:    name,
		docs:    make(map[string]Document),
		indexes: make(map[string]*Index),
	}
	se.collections[name] = coll
	return coll
}

// collectionNames returns a stable snapshot of collection names.
func (se *StorageEngine) collectionNames() []string {
	se.mu.RLock()
	defer se.mu.RUnlock()
	names := make([]string, 0, len(se.collections))
	for name := range se.collections {
		names = append(names, name)
	}
	return names
}
