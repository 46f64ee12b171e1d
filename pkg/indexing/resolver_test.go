package indexing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/indexing"
)

func int32Ptr(v int32) *int32 { return &v }

func TestResolveDerivesNames(t *testing.T) {
	specs := []domain.IndexSpec{
		{Keys: []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}}},
		{Keys: []domain.IndexKey{
			{Field: "age", Type: domain.IndexDescending},
			{Field: "city", Type: domain.IndexAscending},
		}},
		{Keys: []domain.IndexKey{{Field: "location", Type: domain.Index2DSphere}}},
		{Keys: []domain.IndexKey{{Field: "token", Type: domain.IndexHashed}}},
	}

	resolved, err := indexing.Resolve("users", specs)
	require.NoError(t, err)
	require.Len(t, resolved, 4)

	assert.Equal(t, "email_1", resolved[0].Name)
	assert.Equal(t, "age_-1_city_1", resolved[1].Name)
	assert.Equal(t, "location_2dsphere", resolved[2].Name)
	assert.Equal(t, "token_hashed", resolved[3].Name)
}

func TestResolveKeepsExplicitNamesAndOrder(t *testing.T) {
	specs := []domain.IndexSpec{
		{Name: "by_email", Keys: []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}}},
		{Keys: []domain.IndexKey{{Field: "age", Type: domain.IndexAscending}}},
	}

	resolved, err := indexing.Resolve("users", specs)
	require.NoError(t, err)
	assert.Equal(t, "by_email", resolved[0].Name)
	assert.Equal(t, "age_1", resolved[1].Name)
}

func TestResolveRejectsEmptyKeyList(t *testing.T) {
	_, err := indexing.Resolve("users", []domain.IndexSpec{{Name: "empty"}})
	require.Error(t, err)

	var descErr *domain.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Equal(t, "users", descErr.Model)
	assert.Contains(t, err.Error(), "empty key list")
}

func TestResolveRejectsDuplicateNames(t *testing.T) {
	specs := []domain.IndexSpec{
		{Keys: []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}}},
		{Name: "email_1", Keys: []domain.IndexKey{{Field: "other", Type: domain.IndexAscending}}},
	}

	_, err := indexing.Resolve("users", specs)
	require.Error(t, err)

	var descErr *domain.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Contains(t, err.Error(), `"email_1"`)
}

func TestResolveRejectsPrimaryKeyName(t *testing.T) {
	specs := []domain.IndexSpec{
		{Name: domain.PrimaryKeyIndexName, Keys: []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}}},
	}

	_, err := indexing.Resolve("users", specs)
	require.Error(t, err)

	var descErr *domain.DescriptorError
	require.ErrorAs(t, err, &descErr)
	assert.Contains(t, err.Error(), "reserved for the primary key")
}

func TestResolveNormalizesServerDefaultOptions(t *testing.T) {
	specs := []domain.IndexSpec{{
		Keys: []domain.IndexKey{{Field: "bio", Type: domain.IndexText}},
		Options: domain.IndexOptions{
			Weights:          map[string]int32{"bio": 1},
			DefaultLanguage:  "english",
			LanguageOverride: "language",
		},
	}}

	resolved, err := indexing.Resolve("users", specs)
	require.NoError(t, err)
	// Declaring exactly the server's defaults is the same as declaring
	// nothing.
	assert.Nil(t, resolved[0].Options.Weights)
	assert.Empty(t, resolved[0].Options.DefaultLanguage)
	assert.Empty(t, resolved[0].Options.LanguageOverride)
}

func TestResolveRejectsUnknownKeyType(t *testing.T) {
	specs := []domain.IndexSpec{
		{Keys: []domain.IndexKey{{Field: "email", Type: domain.IndexType("sideways")}}},
	}

	_, err := indexing.Resolve("users", specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key type "sideways"`)
}

func TestResolveRejectsBadOptionValues(t *testing.T) {
	t.Run("negative ttl", func(t *testing.T) {
		specs := []domain.IndexSpec{{
			Keys:    []domain.IndexKey{{Field: "expires_at", Type: domain.IndexAscending}},
			Options: domain.IndexOptions{ExpireAfterSeconds: int32Ptr(-1)},
		}}
		_, err := indexing.Resolve("sessions", specs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expireAfterSeconds")
	})

	t.Run("weights on non-text index", func(t *testing.T) {
		specs := []domain.IndexSpec{{
			Keys:    []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}},
			Options: domain.IndexOptions{Weights: map[string]int32{"email": 5}},
		}}
		_, err := indexing.Resolve("users", specs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only valid on text indexes")
	})

	t.Run("non-positive weight", func(t *testing.T) {
		specs := []domain.IndexSpec{{
			Keys:    []domain.IndexKey{{Field: "bio", Type: domain.IndexText}},
			Options: domain.IndexOptions{Weights: map[string]int32{"bio": 0}},
		}}
		_, err := indexing.Resolve("users", specs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "positive integer")
	})

	t.Run("weight on foreign field", func(t *testing.T) {
		specs := []domain.IndexSpec{{
			Keys:    []domain.IndexKey{{Field: "bio", Type: domain.IndexText}},
			Options: domain.IndexOptions{Weights: map[string]int32{"headline": 3}},
		}}
		_, err := indexing.Resolve("users", specs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not part of the key list")
	})
}

func TestResolveIsDeterministic(t *testing.T) {
	specs := []domain.IndexSpec{
		{Keys: []domain.IndexKey{{Field: "a.b", Type: domain.IndexAscending}}},
		{
			Keys:    []domain.IndexKey{{Field: "bio", Type: domain.IndexText}},
			Options: domain.IndexOptions{Weights: map[string]int32{"bio": 10}},
		},
	}

	first, err := indexing.Resolve("things", specs)
	require.NoError(t, err)
	second, err := indexing.Resolve("things", specs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "a.b_1", first[0].Name)
}
