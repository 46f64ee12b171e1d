package migrate_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/migrate"
)

// fakeCollection implements domain.CollectionHandle over a slice of flat
// documents, supporting the filter and update shapes migrations use:
// equality, {$exists: bool}, $set and $unset.
type fakeCollection struct {
	name        string
	docs        []map[string]interface{}
	updateCalls int
	failUpdate  error
}

func (f *fakeCollection) Name() string { return f.name }

func (f *fakeCollection) ListIndexes(_ context.Context) ([]domain.ExistingIndex, error) {
	return nil, nil
}

func (f *fakeCollection) CreateIndex(_ context.Context, _ domain.IndexSpec) error { return nil }

func (f *fakeCollection) DropIndex(_ context.Context, _ string) error { return nil }

func (f *fakeCollection) UpdateMany(_ context.Context, filter, update interface{}) (*domain.UpdateResult, error) {
	f.updateCalls++
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}

	res := &domain.UpdateResult{}
	for _, doc := range f.docs {
		if !f.matches(doc, filter.(bson.D)) {
			continue
		}
		res.Matched++
		if f.apply(doc, update.(bson.D)) {
			res.Modified++
		}
	}
	return res, nil
}

func (f *fakeCollection) matches(doc map[string]interface{}, filter bson.D) bool {
	for _, cond := range filter {
		val, present := doc[cond.Key]
		if op, ok := cond.Value.(bson.D); ok && len(op) == 1 && op[0].Key == "$exists" {
			if present != op[0].Value.(bool) {
				return false
			}
			continue
		}
		if !present || val != cond.Value {
			return false
		}
	}
	return true
}

func (f *fakeCollection) apply(doc map[string]interface{}, update bson.D) bool {
	changed := false
	for _, op := range update {
		body := op.Value.(bson.D)
		switch op.Key {
		case "$set":
			for _, e := range body {
				if doc[e.Key] != e.Value {
					doc[e.Key] = e.Value
					changed = true
				}
			}
		case "$unset":
			for _, e := range body {
				if _, ok := doc[e.Key]; ok {
					delete(doc, e.Key)
					changed = true
				}
			}
		}
	}
	return changed
}

func (f *fakeCollection) countMatching(filter bson.D) int {
	count := 0
	for _, doc := range f.docs {
		if f.matches(doc, filter) {
			count++
		}
	}
	return count
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIntervalMigrationRequiresSetOrUnset(t *testing.T) {
	_, err := migrate.NewIntervalMigration("add-status", time.Now(), bson.D{}, nil, nil)
	require.Error(t, err)

	var descErr *domain.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Contains(t, err.Error(), "one of set or unset")
}

func TestIntervalMigrationRequiresFilter(t *testing.T) {
	// The real driver rejects a nil filter at update time; catching it at
	// construction keeps the failure with the other declaration errors
	// instead of surfacing mid-boot.
	_, err := migrate.NewIntervalMigration("add-status", time.Now(), nil,
		bson.D{{Key: "status", Value: "active"}}, nil)
	require.Error(t, err)

	var descErr *domain.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Contains(t, err.Error(), "filter must not be nil")
}

func TestIntervalMigrationRequiresName(t *testing.T) {
	_, err := migrate.NewIntervalMigration("", time.Now(), bson.D{}, bson.D{{Key: "a", Value: 1}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a name")
}

func TestIntervalMigrationThresholdGating(t *testing.T) {
	threshold := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m, err := migrate.NewIntervalMigration(
		"add-status", threshold,
		bson.D{{Key: "status", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "status", Value: "active"}}, nil,
		migrate.WithClock(fixedClock(threshold.Add(-time.Hour))),
	)
	require.NoError(t, err)
	assert.True(t, m.Applicable(), "strictly before the threshold the migration is active")

	atThreshold, err := migrate.NewIntervalMigration(
		"add-status", threshold,
		bson.D{}, bson.D{{Key: "status", Value: "active"}}, nil,
		migrate.WithClock(fixedClock(threshold)),
	)
	require.NoError(t, err)
	assert.False(t, atThreshold.Applicable(), "at the threshold instant the migration deactivates")

	after, err := migrate.NewIntervalMigration(
		"add-status", threshold,
		bson.D{}, bson.D{{Key: "status", Value: "active"}}, nil,
		migrate.WithClock(fixedClock(threshold.Add(time.Hour))),
	)
	require.NoError(t, err)
	assert.False(t, after.Applicable())
}

func TestExecutorAppliesAndConverges(t *testing.T) {
	coll := &fakeCollection{name: "users", docs: []map[string]interface{}{
		{"_id": "1", "name": "alice"},
		{"_id": "2", "name": "bob"},
		{"_id": "3", "name": "carol", "status": "active"},
	}}

	threshold := time.Now().Add(24 * time.Hour)
	m, err := migrate.NewIntervalMigration(
		"add-status", threshold,
		bson.D{{Key: "status", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "status", Value: "active"}}, nil,
	)
	require.NoError(t, err)

	exec := migrate.NewExecutor(zerolog.Nop())
	report, err := exec.Run(context.Background(), coll, []domain.Migration{m})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.MigrationApplied, report.Results[0].Status)
	assert.Equal(t, int64(2), report.Results[0].Modified)

	// Re-running before the threshold with nothing left to convert reports
	// zero modified and no error.
	report, err = exec.Run(context.Background(), coll, []domain.Migration{m})
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationApplied, report.Results[0].Status)
	assert.Equal(t, int64(0), report.Results[0].Modified)
}

func TestExecutorSkipsInactiveMigrations(t *testing.T) {
	coll := &fakeCollection{name: "users", docs: []map[string]interface{}{
		{"_id": "1"},
	}}

	past := time.Now().Add(-time.Hour)
	m, err := migrate.NewIntervalMigration(
		"expired", past,
		bson.D{}, bson.D{{Key: "status", Value: "active"}}, nil,
	)
	require.NoError(t, err)

	exec := migrate.NewExecutor(zerolog.Nop())
	report, err := exec.Run(context.Background(), coll, []domain.Migration{m})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.MigrationInactive, report.Results[0].Status)
	assert.Equal(t, 0, coll.updateCalls, "apply must never be invoked past the threshold")
}

func TestExecutorRunsRegistryInOrder(t *testing.T) {
	// M2's filter depends on the field M1 writes: a single pass in declared
	// order must leave nothing matching M2's filter.
	coll := &fakeCollection{name: "users", docs: []map[string]interface{}{
		{"_id": "1", "name": "alice"},
		{"_id": "2", "name": "bob"},
	}}

	threshold := time.Now().Add(24 * time.Hour)
	m1, err := migrate.NewIntervalMigration(
		"add-plan", threshold,
		bson.D{{Key: "plan", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "plan", Value: "free"}}, nil,
	)
	require.NoError(t, err)

	m2Filter := bson.D{
		{Key: "plan", Value: "free"},
		{Key: "quota", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	m2, err := migrate.NewIntervalMigration(
		"seed-quota", threshold, m2Filter,
		bson.D{{Key: "quota", Value: 10}}, nil,
	)
	require.NoError(t, err)

	exec := migrate.NewExecutor(zerolog.Nop())
	report, err := exec.Run(context.Background(), coll, []domain.Migration{m1, m2})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "add-plan", report.Results[0].Name)
	assert.Equal(t, "seed-quota", report.Results[1].Name)
	assert.Equal(t, int64(2), report.Results[1].Modified)
	assert.Equal(t, 0, coll.countMatching(m2Filter))
}

func TestExecutorHaltsOnFirstFailure(t *testing.T) {
	coll := &fakeCollection{name: "users", failUpdate: fmt.Errorf("server unreachable")}

	threshold := time.Now().Add(24 * time.Hour)
	m1, err := migrate.NewIntervalMigration(
		"first", threshold, bson.D{}, bson.D{{Key: "a", Value: 1}}, nil,
	)
	require.NoError(t, err)
	m2, err := migrate.NewIntervalMigration(
		"second", threshold, bson.D{}, bson.D{{Key: "b", Value: 2}}, nil,
	)
	require.NoError(t, err)

	exec := migrate.NewExecutor(zerolog.Nop())
	report, err := exec.Run(context.Background(), coll, []domain.Migration{m1, m2})
	require.Error(t, err)

	var applyErr *domain.MigrationApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "first", applyErr.Migration)
	assert.Equal(t, "users", applyErr.Collection)

	assert.Equal(t, 1, coll.updateCalls, "second migration must not be attempted")
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.MigrationFailed, report.Results[0].Status)
}

func TestExecutorRejectsDuplicateNames(t *testing.T) {
	coll := &fakeCollection{name: "users"}

	threshold := time.Now().Add(24 * time.Hour)
	m1, err := migrate.NewIntervalMigration("dup", threshold, bson.D{}, bson.D{{Key: "a", Value: 1}}, nil)
	require.NoError(t, err)
	m2, err := migrate.NewIntervalMigration("dup", threshold, bson.D{}, bson.D{{Key: "b", Value: 2}}, nil)
	require.NoError(t, err)

	exec := migrate.NewExecutor(zerolog.Nop())
	_, err = exec.Run(context.Background(), coll, []domain.Migration{m1, m2})
	require.Error(t, err)

	var descErr *domain.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Equal(t, 0, coll.updateCalls)
}

func TestIntervalMigrationUnsetOnly(t *testing.T) {
	coll := &fakeCollection{name: "users", docs: []map[string]interface{}{
		{"_id": "1", "legacy_field": "x"},
		{"_id": "2"},
	}}

	m, err := migrate.NewIntervalMigration(
		"drop-legacy", time.Now().Add(time.Hour),
		bson.D{{Key: "legacy_field", Value: bson.D{{Key: "$exists", Value: true}}}},
		nil, bson.D{{Key: "legacy_field", Value: ""}},
	)
	require.NoError(t, err)

	modified, err := m.Apply(context.Background(), coll)
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)
	_, present := coll.docs[0]["legacy_field"]
	assert.False(t, present)
}
