package domain

import "context"

// Migration is a named, independently-applicable unit of document
// correction. Anything exposing these three methods qualifies; no concrete
// type is required beyond the capability.
//
// Applicable is consulted before every run: a migration that reports false
// is skipped, which is not an error. This is how migrations self-deactivate
// once their job is done (see migrate.IntervalMigration).
type Migration interface {
	Name() string
	Applicable() bool
	Apply(ctx context.Context, coll CollectionHandle) (modified int64, err error)
}

// MigrationStatus is the per-migration outcome within one executor pass.
type MigrationStatus string

const (
	MigrationApplied  MigrationStatus = "applied"
	MigrationInactive MigrationStatus = "inactive"
	MigrationFailed   MigrationStatus = "failed"
)

// MigrationResult records what happened to a single migration.
type MigrationResult struct {
	Name     string          `json:"name"`
	Status   MigrationStatus `json:"status"`
	Modified int64           `json:"modified"`
	Error    string          `json:"error,omitempty"`
}

// MigrationReport summarizes one executor pass over a model's registry, in
// registry order. If a migration failed, it is the last entry; later
// migrations were never attempted.
type MigrationReport struct {
	Collection string            `json:"collection"`
	Results    []MigrationResult `json:"results"`
}
