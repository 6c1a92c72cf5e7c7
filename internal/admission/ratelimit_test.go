package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_AllowsUpToLimit(t *testing.T) {
	s := NewRateLimitService(2, 100, 100)
	defer s.Stop()

	require.NoError(t, s.TryAcquire("u1", "1.2.3.4", "example.com"))
	require.NoError(t, s.TryAcquire("u1", "1.2.3.4", "example.com"))
	err := s.TryAcquire("u1", "1.2.3.4", "example.com")
	require.Error(t, err)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "user", rlErr.Bucket)
}

func TestRateLimitService_BucketsAreIndependent(t *testing.T) {
	s := NewRateLimitService(1, 100, 100)
	defer s.Stop()

	require.NoError(t, s.TryAcquire("u1", "1.2.3.4", "example.com"))
	// a different user against the same IP/target should not be blocked
	// by u1's exhausted per-user bucket
	require.NoError(t, s.TryAcquire("u2", "1.2.3.4", "example.com"))
}

func TestRateLimitService_IPBucketRejects(t *testing.T) {
	s := NewRateLimitService(100, 1, 100)
	defer s.Stop()

	require.NoError(t, s.TryAcquire("u1", "1.2.3.4", "example.com"))
	err := s.TryAcquire("u2", "1.2.3.4", "other.com")
	require.Error(t, err)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "ip", rlErr.Bucket)
}

func TestRateLimitService_TargetBucketRejects(t *testing.T) {
	s := NewRateLimitService(100, 100, 1)
	defer s.Stop()

	require.NoError(t, s.TryAcquire("u1", "1.2.3.4", "example.com"))
	err := s.TryAcquire("u2", "5.6.7.8", "example.com")
	require.Error(t, err)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "target", rlErr.Bucket)
}
