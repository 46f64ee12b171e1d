package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Executor applies a model's migration registry against its collection, in
// declared order. Order matters: earlier migrations' effects may be
// prerequisites for later ones' filters.
type Executor struct {
	log zerolog.Logger
}

// NewExecutor creates an executor. Pass zerolog.Nop() to silence it.
func NewExecutor(log zerolog.Logger) *Executor {
	return &Executor{log: log}
}

// Run walks the registry once. Inapplicable migrations are recorded as
// inactive and skipped, which is never an error. The first Apply failure is
// recorded, aborts all remaining migrations, and is returned wrapped in
// *domain.MigrationApplyError; the caller decides fatality.
func (e *Executor) Run(ctx context.Context, coll domain.CollectionHandle, registry []domain.Migration) (*domain.MigrationReport, error) {
	if err := validateRegistry(coll.Name(), registry); err != nil {
		return nil, err
	}

	e.log.Info().Str("collection", coll.Name()).Int("migrations", len(registry)).
		Msg("starting migrations")
	report := &domain.MigrationReport{Collection: coll.Name()}

	for _, m := range registry {
		if !m.Applicable() {
			e.log.Info().Str("collection", coll.Name()).Str("migration", m.Name()).
				Msg("migration inactive, skipping")
			report.Results = append(report.Results, domain.MigrationResult{
				Name:   m.Name(),
				Status: domain.MigrationInactive,
			})
			continue
		}

		e.log.Info().Str("collection", coll.Name()).Str("migration", m.Name()).
			Msg("executing migration")
		modified, err := m.Apply(ctx, coll)
		if err != nil {
			report.Results = append(report.Results, domain.MigrationResult{
				Name:   m.Name(),
				Status: domain.MigrationFailed,
				Error:  err.Error(),
			})
			return report, &domain.MigrationApplyError{
				Collection: coll.Name(), Migration: m.Name(), Err: err,
			}
		}

		e.log.Info().Str("collection", coll.Name()).Str("migration", m.Name()).
			Int64("modified", modified).Msg("migration executed")
		report.Results = append(report.Results, domain.MigrationResult{
			Name:     m.Name(),
			Status:   domain.MigrationApplied,
			Modified: modified,
		})
	}

	e.log.Info().Str("collection", coll.Name()).Msg("finished migrations")
	return report, nil
}

// validateRegistry rejects duplicate migration names before any network
// call; names must be unique per collection.
func validateRegistry(collection string, registry []domain.Migration) error {
	seen := make(map[string]bool, len(registry))
	for _, m := range registry {
		if seen[m.Name()] {
			return &domain.DescriptorError{
				Model:  collection,
				Reason: fmt.Sprintf("duplicate migration name %q", m.Name()),
			}
		}
		seen[m.Name()] = true
	}
	return nil
}
