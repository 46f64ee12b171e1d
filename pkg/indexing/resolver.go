package indexing

import (
	"fmt"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Resolve validates and normalizes a model's declared index specs into the
// fixed ordered list the synchronizer works from. It is pure and performs no
// I/O; it runs once per model, at process initialization.
//
// Resolution fails with *domain.DescriptorError when a spec has an empty key
// list, uses an unknown key type, derives the same name as another spec in
// the model, claims the reserved primary-key name, or carries an option
// value outside its documented domain.
func Resolve(model string, specs []domain.IndexSpec) ([]domain.IndexSpec, error) {
	resolved := make([]domain.IndexSpec, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for i, spec := range specs {
		if len(spec.Keys) == 0 {
			return nil, &domain.DescriptorError{
				Model:  model,
				Reason: fmt.Sprintf("index spec %d has an empty key list", i),
			}
		}
		hasText := false
		for _, key := range spec.Keys {
			if key.Field == "" {
				return nil, &domain.DescriptorError{
					Model:  model,
					Reason: fmt.Sprintf("index spec %d has a key with an empty field path", i),
				}
			}
			if !key.Type.Valid() {
				return nil, &domain.DescriptorError{
					Model:  model,
					Reason: fmt.Sprintf("index spec %d: unknown key type %q on field %q", i, key.Type, key.Field),
				}
			}
			if key.Type == domain.IndexText {
				hasText = true
			}
		}
		if err := validateOptions(model, spec, hasText); err != nil {
			return nil, err
		}

		spec.Name = spec.ResolvedName()
		spec.Options = normalizeOptions(spec.Options)
		if spec.Name == domain.PrimaryKeyIndexName {
			return nil, &domain.DescriptorError{
				Model:  model,
				Reason: fmt.Sprintf("index name %q is reserved for the primary key", spec.Name),
			}
		}
		if seen[spec.Name] {
			return nil, &domain.DescriptorError{
				Model:  model,
				Reason: fmt.Sprintf("two index specs resolve to the name %q", spec.Name),
			}
		}
		seen[spec.Name] = true
		resolved = append(resolved, spec)
	}
	return resolved, nil
}

func validateOptions(model string, spec domain.IndexSpec, hasText bool) error {
	opts := spec.Options
	if opts.ExpireAfterSeconds != nil && *opts.ExpireAfterSeconds < 0 {
		return &domain.DescriptorError{
			Model:  model,
			Reason: fmt.Sprintf("index %q: expireAfterSeconds must not be negative", spec.ResolvedName()),
		}
	}
	if len(opts.Weights) > 0 {
		if !hasText {
			return &domain.DescriptorError{
				Model:  model,
				Reason: fmt.Sprintf("index %q: weights are only valid on text indexes", spec.ResolvedName()),
			}
		}
		fields := make(map[string]bool, len(spec.Keys))
		for _, key := range spec.Keys {
			fields[key.Field] = true
		}
		for field, weight := range opts.Weights {
			if weight <= 0 {
				return &domain.DescriptorError{
					Model:  model,
					Reason: fmt.Sprintf("index %q: weight for field %q must be a positive integer", spec.ResolvedName(), field),
				}
			}
			if !fields[field] {
				return &domain.DescriptorError{
					Model:  model,
					Reason: fmt.Sprintf("index %q: weight references field %q which is not part of the key list", spec.ResolvedName(), field),
				}
			}
		}
	}
	return nil
}

// normalizeOptions maps option sets onto a canonical form so that two
// equivalent declarations compare equal byte-for-byte. Server-default values
// are folded into the unset form: an all-ones weight map, the "english"
// default language, and the "language" override field name are exactly what
// the server applies when nothing is declared, so carrying them explicitly
// must not read as a difference.
func normalizeOptions(opts domain.IndexOptions) domain.IndexOptions {
	if len(opts.Weights) == 0 || allDefaultWeights(opts.Weights) {
		opts.Weights = nil
	}
	if opts.DefaultLanguage == "english" {
		opts.DefaultLanguage = ""
	}
	if opts.LanguageOverride == "language" {
		opts.LanguageOverride = ""
	}
	return opts
}

func allDefaultWeights(weights map[string]int32) bool {
	for _, w := range weights {
		if w != 1 {
			return false
		}
	}
	return true
}
