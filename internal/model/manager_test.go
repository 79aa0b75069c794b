package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicebox/internal/backend"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Provider() backend.BackendProvider {
	return backend.BackendProviderCoqui
}

func (m *MockLoader) Load(ctx context.Context, modelID string) (string, error) {
	args := m.Called(ctx, modelID)
	return args.String(0), args.Error(1)
}

func TestManager_InitiallyUnloaded(t *testing.T) {
	m := NewManager(ModelTypeTTS)

	assert.False(t, m.Loaded())
	require.NotNil(t, m.Current())
	assert.Equal(t, ModelStatusUnloaded, m.Current().Status)
	assert.Equal(t, ModelTypeTTS, m.Current().Type)
}

func TestManager_LoadFirstCandidate(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, "primary").Return("/models/primary", nil)

	m := NewManager(ModelTypeTTS)
	inst, err := m.Load(context.Background(), loader, "primary", "fallback")
	require.NoError(t, err)

	assert.True(t, m.Loaded())
	assert.Same(t, inst, m.Current())
	assert.Equal(t, "primary", inst.ID)
	assert.Equal(t, "/models/primary", inst.Path)
	assert.Equal(t, backend.BackendProviderCoqui, inst.Provider)
	assert.NotNil(t, inst.LoadedAt)
	loader.AssertNotCalled(t, "Load", mock.Anything, "fallback")
}

func TestManager_LoadFallsBack(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, "primary").Return("", errors.New("weights corrupt"))
	loader.On("Load", mock.Anything, "fallback").Return("fallback", nil)

	m := NewManager(ModelTypeTTS)
	inst, err := m.Load(context.Background(), loader, "primary", "fallback")
	require.NoError(t, err)

	assert.Equal(t, "fallback", inst.ID)
	assert.Empty(t, inst.Error)
	loader.AssertExpectations(t)
}

func TestManager_LoadAllFail(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, "primary").Return("", errors.New("weights corrupt"))
	loader.On("Load", mock.Anything, "fallback").Return("", errors.New("not installed"))

	m := NewManager(ModelTypeSTT)
	inst, err := m.Load(context.Background(), loader, "primary", "fallback")

	assert.Nil(t, inst)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorContains(t, err, "weights corrupt")
	assert.ErrorContains(t, err, "not installed")
	assert.False(t, m.Loaded())
	assert.Equal(t, ModelStatusFailed, m.Current().Status)
	assert.Equal(t, "not installed", m.Current().Error)
}

func TestManager_LoadSkipsEmptyCandidates(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, "base").Return("/m/ggml-base.bin", nil)

	m := NewManager(ModelTypeSTT)
	_, err := m.Load(context.Background(), loader, "", "base")
	require.NoError(t, err)

	_, err = NewManager(ModelTypeSTT).Load(context.Background(), loader, "", "")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestManager_LoadStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, "primary").
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	_, err := NewManager(ModelTypeTTS).Load(ctx, loader, "primary", "fallback")
	assert.ErrorIs(t, err, context.Canceled)
	loader.AssertNotCalled(t, "Load", mock.Anything, "fallback")
}
