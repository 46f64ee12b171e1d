package migrate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// IntervalMigration is a document correction that keeps re-applying on every
// boot until a deployment-chosen cutover time has passed, then becomes a
// permanent no-op.
//
// Under rolling deployment, peers still running the old code may keep
// writing old-schema documents after the migration has started converging
// data. Re-running on every boot strictly before the threshold compensates
// for that; once the threshold passes, all peers are assumed to write the
// new schema and the migration deactivates itself. Deactivation comes from
// the wall clock, never from a persisted flag. The migration stays in code
// for auditability.
//
// Instances are built once at process start from static model metadata and
// are immutable afterwards.
type IntervalMigration struct {
	name      string
	threshold time.Time
	filter    bson.D
	set       bson.D
	unset     bson.D
	now       func() time.Time
}

// Option configures an IntervalMigration at construction.
type Option func(*IntervalMigration)

// WithClock replaces the wall-clock source used by Applicable. Tests use
// this to simulate pre- and post-threshold behavior deterministically.
func WithClock(now func() time.Time) Option {
	return func(m *IntervalMigration) {
		m.now = now
	}
}

// NewIntervalMigration builds an interval-gated migration. The filter
// selects the documents still carrying the old shape and must not be nil;
// pass an empty bson.D to select every document. Set and unset become the
// body of a single bulk update; at least one of them is required.
func NewIntervalMigration(name string, threshold time.Time, filter bson.D, set, unset bson.D, opts ...Option) (*IntervalMigration, error) {
	if name == "" {
		return nil, &domain.DescriptorError{Reason: "interval migration requires a name"}
	}
	if filter == nil {
		return nil, &domain.DescriptorError{
			Reason: "interval migration " + name + ": filter must not be nil, use an empty filter to select all documents",
		}
	}
	if set == nil && unset == nil {
		return nil, &domain.DescriptorError{
			Reason: "interval migration " + name + ": one of set or unset must be specified",
		}
	}
	m := &IntervalMigration{
		name:      name,
		threshold: threshold,
		filter:    filter,
		set:       set,
		unset:     unset,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the migration's name, unique per collection.
func (m *IntervalMigration) Name() string { return m.name }

// Applicable reports true strictly before the threshold instant.
func (m *IntervalMigration) Applicable() bool {
	return m.now().Before(m.threshold)
}

// Apply issues one bulk update selecting documents with the filter and
// rewriting them with the set/unset operations. Per-document atomicity is
// the store's own guarantee; there is no transaction across documents. A
// zero modified count is a normal outcome, meaning convergence has already
// completed.
func (m *IntervalMigration) Apply(ctx context.Context, coll domain.CollectionHandle) (int64, error) {
	update := bson.D{}
	if m.set != nil {
		update = append(update, bson.E{Key: "$set", Value: m.set})
	}
	if m.unset != nil {
		update = append(update, bson.E{Key: "$unset", Value: m.unset})
	}

	res, err := coll.UpdateMany(ctx, m.filter, update)
	if err != nil {
		return 0, err
	}
	return res.Modified, nil
}
