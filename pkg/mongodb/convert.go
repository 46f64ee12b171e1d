package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// indexModel builds the driver's index model from a resolved spec. The name
// is always set explicitly so server-derived names can never drift from the
// names the diff compares.
func indexModel(spec domain.IndexSpec) mongo.IndexModel {
	opts := options.Index().SetName(spec.ResolvedName())
	if spec.Options.Unique {
		opts.SetUnique(true)
	}
	if spec.Options.Sparse {
		opts.SetSparse(true)
	}
	if spec.Options.Background {
		opts.SetBackground(true)
	}
	if spec.Options.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*spec.Options.ExpireAfterSeconds)
	}
	if len(spec.Options.Weights) > 0 {
		weights := bson.D{}
		for _, key := range spec.Keys {
			if w, ok := spec.Options.Weights[key.Field]; ok {
				weights = append(weights, bson.E{Key: key.Field, Value: w})
			}
		}
		opts.SetWeights(weights)
	}
	if spec.Options.DefaultLanguage != "" {
		opts.SetDefaultLanguage(spec.Options.DefaultLanguage)
	}
	if spec.Options.LanguageOverride != "" {
		opts.SetLanguageOverride(spec.Options.LanguageOverride)
	}
	if spec.Options.Bits != nil {
		opts.SetBits(*spec.Options.Bits)
	}
	if spec.Options.Min != nil {
		opts.SetMin(*spec.Options.Min)
	}
	if spec.Options.Max != nil {
		opts.SetMax(*spec.Options.Max)
	}
	if spec.Options.BucketSize != nil {
		opts.SetBucketSize(*spec.Options.BucketSize)
	}
	return mongo.IndexModel{Keys: keysDocument(spec.Keys), Options: opts}
}

// keysDocument renders the ordered key sequence as the server-side key
// document.
func keysDocument(keys []domain.IndexKey) bson.D {
	doc := make(bson.D, 0, len(keys))
	for _, key := range keys {
		doc = append(doc, bson.E{Key: key.Field, Value: key.Type.KeyValue()})
	}
	return doc
}

// indexDocument is the shape of one listIndexes result. bson.D fields keep
// the server's ordering.
type indexDocument struct {
	Name               string   `bson:"name"`
	Key                bson.D   `bson:"key"`
	Unique             bool     `bson:"unique"`
	Sparse             bool     `bson:"sparse"`
	Background         bool     `bson:"background"`
	ExpireAfterSeconds *int32   `bson:"expireAfterSeconds"`
	Weights            bson.D   `bson:"weights"`
	DefaultLanguage    string   `bson:"default_language"`
	LanguageOverride   string   `bson:"language_override"`
	Bits               *int32   `bson:"bits"`
	Min                *float64 `bson:"min"`
	Max                *float64 `bson:"max"`
	BucketSize         *int32   `bson:"bucketSize"`
}

// existingFromDocument converts a listIndexes entry back into the domain
// shape. Text indexes need special handling: the server replaces the text
// fields in the key document with the _fts/_ftsx pair and records the real
// fields in the weights document.
func existingFromDocument(doc indexDocument) (domain.ExistingIndex, error) {
	keys := make([]domain.IndexKey, 0, len(doc.Key))
	for _, entry := range doc.Key {
		switch entry.Key {
		case "_fts":
			for _, weight := range doc.Weights {
				keys = append(keys, domain.IndexKey{Field: weight.Key, Type: domain.IndexText})
			}
		case "_ftsx":
			// Version marker paired with _fts, not a key.
		default:
			keyType, err := keyTypeFromValue(entry.Value)
			if err != nil {
				return domain.ExistingIndex{}, fmt.Errorf("key %q: %w", entry.Key, err)
			}
			keys = append(keys, domain.IndexKey{Field: entry.Key, Type: keyType})
		}
	}

	opts := domain.IndexOptions{
		Unique:             doc.Unique,
		Sparse:             doc.Sparse,
		Background:         doc.Background,
		ExpireAfterSeconds: doc.ExpireAfterSeconds,
		Bits:               doc.Bits,
		Min:                doc.Min,
		Max:                doc.Max,
		BucketSize:         doc.BucketSize,
	}
	// Text indexes come back with the server's language defaults filled in
	// even when nothing was declared. Reporting those as explicit options
	// would fail the diff against an undeclared spec on every pass.
	if doc.DefaultLanguage != "english" {
		opts.DefaultLanguage = doc.DefaultLanguage
	}
	if doc.LanguageOverride != "language" {
		opts.LanguageOverride = doc.LanguageOverride
	}
	if weights := explicitWeights(doc.Weights); len(weights) > 0 {
		opts.Weights = weights
	}
	return domain.ExistingIndex{Name: doc.Name, Keys: keys, Options: opts}, nil
}

// explicitWeights filters out the server's default weighting. A text index
// declared without weights comes back with every field weighted 1; reporting
// that as an explicit option would make the diff drop and recreate the index
// on every pass.
func explicitWeights(weights bson.D) map[string]int32 {
	allDefault := true
	out := make(map[string]int32, len(weights))
	for _, entry := range weights {
		w, err := toInt32(entry.Value)
		if err != nil {
			continue
		}
		if w != 1 {
			allDefault = false
		}
		out[entry.Key] = w
	}
	if allDefault || len(out) == 0 {
		return nil
	}
	return out
}

// keyTypeFromValue maps a server-side key value (1, -1, or a type string)
// back to the domain key type.
func keyTypeFromValue(value interface{}) (domain.IndexType, error) {
	if s, ok := value.(string); ok {
		t := domain.IndexType(s)
		if !t.Valid() {
			return "", fmt.Errorf("unknown index key type %q", s)
		}
		return t, nil
	}
	n, err := toInt32(value)
	if err != nil {
		return "", err
	}
	switch n {
	case 1:
		return domain.IndexAscending, nil
	case -1:
		return domain.IndexDescending, nil
	}
	return "", fmt.Errorf("unknown index key direction %d", n)
}

func toInt32(value interface{}) (int32, error) {
	switch v := value.(type) {
	case int32:
		return v, nil
	case int64:
		return int32(v), nil
	case int:
		return int32(v), nil
	case float64:
		return int32(v), nil
	}
	return 0, fmt.Errorf("unexpected numeric value %v (%T)", value, value)
}
