package boot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopInit(ctx context.Context) error { return nil }

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []ServiceDescriptor
		wantErr     string
	}{
		{
			name:        "empty list",
			descriptors: nil,
			wantErr:     "at least one descriptor",
		},
		{
			name: "empty id",
			descriptors: []ServiceDescriptor{
				{ID: "", DisplayName: "Store", Init: noopInit, Weight: 10},
			},
			wantErr: "empty id",
		},
		{
			name: "duplicate id",
			descriptors: []ServiceDescriptor{
				{ID: "store", Init: noopInit, Weight: 10},
				{ID: "store", Init: noopInit, Weight: 20},
			},
			wantErr: `duplicate descriptor id "store"`,
		},
		{
			name: "zero weight",
			descriptors: []ServiceDescriptor{
				{ID: "store", Init: noopInit, Weight: 0},
			},
			wantErr: "non-positive weight",
		},
		{
			name: "negative weight",
			descriptors: []ServiceDescriptor{
				{ID: "store", Init: noopInit, Weight: -3},
			},
			wantErr: "non-positive weight",
		},
		{
			name: "nil init",
			descriptors: []ServiceDescriptor{
				{ID: "store", Weight: 10},
			},
			wantErr: "no init procedure",
		},
		{
			name: "valid",
			descriptors: []ServiceDescriptor{
				{ID: "store", Init: noopInit, Weight: 15},
				{ID: "ipc", Init: noopInit, Weight: 15},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.descriptors)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, reg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.descriptors), reg.Len())
		})
	}
}

func TestRegistry_TotalWeight(t *testing.T) {
	reg, err := NewRegistry([]ServiceDescriptor{
		{ID: "a", Init: noopInit, Weight: 15},
		{ID: "b", Init: noopInit, Weight: 10},
		{ID: "c", Init: noopInit, Weight: 15},
	})
	require.NoError(t, err)
	assert.Equal(t, 40.0, reg.TotalWeight())
}

func TestRegistry_DescriptorsPreservesOrderAndCopies(t *testing.T) {
	reg, err := NewRegistry([]ServiceDescriptor{
		{ID: "first", Init: noopInit, Weight: 1},
		{ID: "second", Init: noopInit, Weight: 1},
		{ID: "third", Init: noopInit, Weight: 1},
	})
	require.NoError(t, err)

	got := reg.Descriptors()
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, "third", got[2].ID)

	// Mutating the returned slice must not touch the registry.
	got[0].ID = "mangled"
	assert.Equal(t, "first", reg.Descriptors()[0].ID)
}
