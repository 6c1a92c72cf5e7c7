package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentLimitService_AcquireAndRelease(t *testing.T) {
	s := NewConcurrentLimitService(10, 2)
	defer s.Stop()

	require.NoError(t, s.Acquire("tenantA", "run-1"))
	assert.True(t, s.InGlobalSet("run-1"))
	assert.True(t, s.InTenantSet("tenantA", "run-1"))

	s.Release("tenantA", "run-1")
	assert.False(t, s.InGlobalSet("run-1"))
	assert.False(t, s.InTenantSet("tenantA", "run-1"))
}

func TestConcurrentLimitService_PerTenantCapRejects(t *testing.T) {
	s := NewConcurrentLimitService(10, 1)
	defer s.Stop()

	require.NoError(t, s.Acquire("tenantA", "run-1"))
	err := s.Acquire("tenantA", "run-2")
	require.Error(t, err)
	var capErr *ConcurrentLimitError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.PerUserCap)

	// the rejected run must not appear in either set (acquire both or neither)
	assert.False(t, s.InGlobalSet("run-2"))
}

func TestConcurrentLimitService_GlobalCapRejects(t *testing.T) {
	s := NewConcurrentLimitService(1, 10)
	defer s.Stop()

	require.NoError(t, s.Acquire("tenantA", "run-1"))
	err := s.Acquire("tenantB", "run-2")
	require.Error(t, err)
	var capErr *ConcurrentLimitError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.GlobalCap)
}

func TestConcurrentLimitService_OtherTenantUnaffected(t *testing.T) {
	s := NewConcurrentLimitService(10, 1)
	defer s.Stop()

	require.NoError(t, s.Acquire("tenantA", "run-1"))
	require.NoError(t, s.Acquire("tenantB", "run-2"), "per-tenant cap must not bleed across tenants")
}
