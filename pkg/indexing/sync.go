package indexing

import (
	"context"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Synchronizer reconciles a collection's live index state with a resolved
// set of declared specs by diffing and applying the minimal create/drop set.
type Synchronizer struct {
	log zerolog.Logger
}

// NewSynchronizer creates a synchronizer. Pass zerolog.Nop() to silence it.
func NewSynchronizer(log zerolog.Logger) *Synchronizer {
	return &Synchronizer{log: log}
}

// Diff is the derived set of operations needed to reach the declared state.
// It is never stored; every sync pass recomputes it from live state, which
// is what makes redundant concurrent passes from independent processes safe.
type Diff struct {
	ToCreate []domain.IndexSpec
	ToDrop   []domain.ExistingIndex
	Kept     []string
}

// ComputeDiff partitions existing indexes against declared specs. An
// existing index is kept only when a declared spec matches its name, full
// key sequence, and normalized option set exactly; any other difference
// means drop-then-create under the same name. The primary-key index is
// excluded from the diff entirely.
func ComputeDiff(declared []domain.IndexSpec, existing []domain.ExistingIndex) Diff {
	var diff Diff
	matched := make(map[string]bool, len(existing))

	for _, ex := range existing {
		if ex.IsPrimaryKey() {
			continue
		}
		if spec, ok := findByName(declared, ex.Name); ok && specMatches(spec, ex) {
			matched[ex.Name] = true
			diff.Kept = append(diff.Kept, ex.Name)
			continue
		}
		diff.ToDrop = append(diff.ToDrop, ex)
	}

	for _, spec := range declared {
		if !matched[spec.ResolvedName()] {
			diff.ToCreate = append(diff.ToCreate, spec)
		}
	}
	return diff
}

// Sync fetches the collection's current indexes, computes the diff against
// the declared specs, and executes drops before creates. Drops run first so
// a renamed or retyped index never collides with its replacement.
//
// Each drop/create is an independent server call. The first failure aborts
// the remaining batch and is surfaced as *domain.IndexSyncError; operations
// already executed stay in place. Reconciliation is resumable: the next call
// re-diffs and retries only the remainder. With unchanged declarations a
// second call performs zero mutations.
func (s *Synchronizer) Sync(ctx context.Context, coll domain.CollectionHandle, declared []domain.IndexSpec) (*domain.SyncReport, error) {
	s.log.Info().Str("collection", coll.Name()).Int("declared", len(declared)).
		Msg("synchronizing indexes")

	existing, err := coll.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}

	diff := ComputeDiff(declared, existing)
	report := &domain.SyncReport{Collection: coll.Name(), Kept: diff.Kept}

	for _, ex := range diff.ToDrop {
		s.log.Info().Str("collection", coll.Name()).Str("index", ex.Name).
			Msg("dropping index")
		if err := coll.DropIndex(ctx, ex.Name); err != nil {
			return report, &domain.IndexSyncError{
				Collection: coll.Name(), Index: ex.Name, Op: "drop", Err: err,
			}
		}
		report.Dropped = append(report.Dropped, ex.Name)
	}

	for _, spec := range diff.ToCreate {
		s.log.Info().Str("collection", coll.Name()).Str("index", spec.Name).
			Msg("creating index")
		if err := coll.CreateIndex(ctx, spec); err != nil {
			return report, &domain.IndexSyncError{
				Collection: coll.Name(), Index: spec.Name, Op: "create", Err: err,
			}
		}
		report.Created = append(report.Created, spec.Name)
	}

	s.log.Info().Str("collection", coll.Name()).
		Int("kept", len(report.Kept)).Int("dropped", len(report.Dropped)).Int("created", len(report.Created)).
		Msg("finished synchronizing indexes")
	return report, nil
}

func findByName(declared []domain.IndexSpec, name string) (domain.IndexSpec, bool) {
	for _, spec := range declared {
		if spec.ResolvedName() == name {
			return spec, true
		}
	}
	return domain.IndexSpec{}, false
}

// specMatches applies the exact-equality rule: name, full key sequence in
// order, and normalized options must all agree.
func specMatches(spec domain.IndexSpec, ex domain.ExistingIndex) bool {
	if spec.ResolvedName() != ex.Name {
		return false
	}
	if len(spec.Keys) != len(ex.Keys) {
		return false
	}
	for i, key := range spec.Keys {
		if ex.Keys[i] != key {
			return false
		}
	}
	declared := normalizeOptions(spec.Options)
	live := normalizeOptions(ex.Options)
	// Servers since 4.2 neither honor nor report the background flag, so it
	// can never participate in the comparison.
	declared.Background = false
	live.Background = false
	return reflect.DeepEqual(declared, live)
}
