package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSmartCache_SetThenGet(t *testing.T) {
	c := NewSmartCache(10, time.Hour)
	c.Set("tenant1", "Login button", "https://example.com", "#login")

	selector, ok := c.Get("tenant1", "Login button", "https://example.com")
	assert.True(t, ok)
	assert.Equal(t, "#login", selector)
}

func TestSmartCache_MissForUnknownKey(t *testing.T) {
	c := NewSmartCache(10, time.Hour)
	_, ok := c.Get("tenant1", "Nonexistent", "https://example.com")
	assert.False(t, ok)
}

func TestSmartCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := NewSmartCache(10, time.Millisecond)
	c.Set("tenant1", "Login button", "https://example.com", "#login")
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("tenant1", "Login button", "https://example.com")
	assert.False(t, ok)
}

func TestSmartCache_FailuresOutweighingSuccessesDegradesToMiss(t *testing.T) {
	c := NewSmartCache(10, time.Hour)
	c.Set("tenant1", "Flaky button", "https://example.com", "#flaky")

	c.RecordOutcome("tenant1", "Flaky button", "https://example.com", false)
	c.RecordOutcome("tenant1", "Flaky button", "https://example.com", false)

	_, ok := c.Get("tenant1", "Flaky button", "https://example.com")
	assert.False(t, ok, "more failures than successes should force re-resolution")
}

func TestSmartCache_SuccessKeepsEntryAlive(t *testing.T) {
	c := NewSmartCache(10, time.Hour)
	c.Set("tenant1", "Stable button", "https://example.com", "#stable")
	c.RecordOutcome("tenant1", "Stable button", "https://example.com", true)

	selector, ok := c.Get("tenant1", "Stable button", "https://example.com")
	assert.True(t, ok)
	assert.Equal(t, "#stable", selector)
}

func TestSmartCache_TenantIsolation(t *testing.T) {
	c := NewSmartCache(10, time.Hour)
	c.Set("tenant1", "Login", "https://example.com", "#a")
	c.Set("tenant2", "Login", "https://example.com", "#b")

	v1, _ := c.Get("tenant1", "Login", "https://example.com")
	v2, _ := c.Get("tenant2", "Login", "https://example.com")
	assert.Equal(t, "#a", v1)
	assert.Equal(t, "#b", v2)
}

func TestSmartCache_EvictsAtCapacity(t *testing.T) {
	c := NewSmartCache(2, time.Hour)
	c.Set("t", "a", "u", "#a")
	c.Set("t", "b", "u", "#b")
	c.Set("t", "c", "u", "#c")

	count := 0
	for _, k := range []string{"a", "b", "c"} {
		if _, ok := c.Get("t", k, "u"); ok {
			count++
		}
	}
	assert.LessOrEqual(t, count, 2, "cache must not exceed its configured capacity")
}
