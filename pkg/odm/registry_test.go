package odm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/odm"
	"github.com/adfharrison1/go-odm/pkg/storage"
)

func TestRegistryInitializeAllMarksModelsReady(t *testing.T) {
	registry := odm.NewRegistry(odm.NewEngine(), storage.NewStorageEngine())
	registry.Register(userModel(t))
	registry.Register(&domain.ModelDescriptor{
		Collection: "sessions",
		Indexes: []domain.IndexSpec{
			{Keys: []domain.IndexKey{{Field: "token", Type: domain.IndexHashed}}},
		},
	})

	assert.False(t, registry.Ready())
	require.NoError(t, registry.InitializeAll(context.Background()))
	assert.True(t, registry.Ready())

	statuses := registry.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "users", statuses[0].Collection)
	assert.Equal(t, "sessions", statuses[1].Collection)
	for _, status := range statuses {
		assert.Equal(t, odm.ModelReady, status.State)
		assert.False(t, status.InitializedAt.IsZero())
	}
}

func TestRegistryEmptyIsReady(t *testing.T) {
	registry := odm.NewRegistry(odm.NewEngine(), storage.NewStorageEngine())
	assert.True(t, registry.Ready())
}

func TestRegistryStopsOnFirstFailure(t *testing.T) {
	db := &failingDatabase{failCreate: map[string]error{
		"email_1": errors.New("index build rejected"),
	}}
	registry := odm.NewRegistry(odm.NewEngine(), db)
	registry.Register(userModel(t))
	registry.Register(&domain.ModelDescriptor{Collection: "sessions"})

	err := registry.InitializeAll(context.Background())
	require.Error(t, err)
	assert.False(t, registry.Ready())

	// The failed model is recorded; the one behind it was never attempted.
	status, ok := registry.Status("users")
	require.True(t, ok)
	assert.Equal(t, odm.ModelFailed, status.State)
	assert.Contains(t, status.Error, "email_1")

	status, ok = registry.Status("sessions")
	require.True(t, ok)
	assert.Equal(t, odm.ModelPending, status.State)
}

func TestRegistryResync(t *testing.T) {
	registry := odm.NewRegistry(odm.NewEngine(), storage.NewStorageEngine())
	registry.Register(userModel(t))
	require.NoError(t, registry.InitializeAll(context.Background()))

	report, err := registry.Resync(context.Background(), "users")
	require.NoError(t, err)
	assert.Zero(t, report.Mutations())

	_, err = registry.Resync(context.Background(), "unknown")
	require.ErrorIs(t, err, odm.ErrModelNotFound)
}

func TestRegistryCollectionHandle(t *testing.T) {
	registry := odm.NewRegistry(odm.NewEngine(), storage.NewStorageEngine())
	registry.Register(userModel(t))

	coll, ok := registry.Collection("users")
	require.True(t, ok)
	assert.Equal(t, "users", coll.Name())

	_, ok = registry.Collection("unknown")
	assert.False(t, ok)
}
