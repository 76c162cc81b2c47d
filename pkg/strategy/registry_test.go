package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopFactory(symbol string) (Strategy, error) {
	return &stubStrategy{}, nil
}

type stubStrategy struct{ BaseStrategy }

func (s *stubStrategy) Next(i int) Signal { return Signal{} }

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("alpha", noopFactory))
	require.NoError(t, reg.Register("beta", noopFactory))

	f, err := reg.Get("alpha")
	require.NoError(t, err)
	strat, err := f("TEST")
	require.NoError(t, err)
	assert.NotNil(t, strat)

	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("alpha", noopFactory))
	err := reg.Register("alpha", noopFactory)
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register("", noopFactory))
	assert.Error(t, reg.Register("alpha", nil))
}

func TestRegistryUnknownNameListsAvailable(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("alpha", noopFactory))

	_, err := reg.Get("gamma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamma")
	assert.Contains(t, err.Error(), "alpha")
}
