package domain

import (
	"context"
	"time"
)

// UpdateResult reports the outcome of a bulk update.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// CollectionHandle is the slice of a document-store collection this engine
// needs: index maintenance plus bulk document updates. Implementations wrap
// a real driver (pkg/mongodb) or the embedded backend (pkg/storage). Every
// method is a single network round-trip; cancellation and timeouts belong to
// the provided context, never to this engine.
type CollectionHandle interface {
	Name() string
	ListIndexes(ctx context.Context) ([]ExistingIndex, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
	DropIndex(ctx context.Context, name string) error
	UpdateMany(ctx context.Context, filter, update interface{}) (*UpdateResult, error)
}

// ReadConcern names a document-store read isolation level. Passed through
// to the driver unmodified.
type ReadConcern string

const (
	ReadConcernLocal        ReadConcern = "local"
	ReadConcernMajority     ReadConcern = "majority"
	ReadConcernAvailable    ReadConcern = "available"
	ReadConcernLinearizable ReadConcern = "linearizable"
	ReadConcernSnapshot     ReadConcern = "snapshot"
)

// ReadPreference names a server-selection policy. Passed through unmodified.
type ReadPreference string

const (
	ReadPrimary            ReadPreference = "primary"
	ReadPrimaryPreferred   ReadPreference = "primaryPreferred"
	ReadSecondary          ReadPreference = "secondary"
	ReadSecondaryPreferred ReadPreference = "secondaryPreferred"
	ReadNearest            ReadPreference = "nearest"
)

// WriteConcern is the write acknowledgement policy for a model's collection.
// The zero value defers entirely to the server defaults.
type WriteConcern struct {
	W        int  // replica acknowledgement count; 0 means server default
	Majority bool // overrides W when true
	Journal  bool
	WTimeout time.Duration
}

// CollectionConfig carries the consistency and routing policies attached to
// a model. The engine never interprets these; adapters map them onto driver
// options.
type CollectionConfig struct {
	ReadConcern    ReadConcern
	WriteConcern   *WriteConcern
	ReadPreference ReadPreference
}

// Database hands out collection handles. Implemented by the driver adapter
// and by the embedded storage backend.
type Database interface {
	Collection(name string, cfg CollectionConfig) CollectionHandle
}
