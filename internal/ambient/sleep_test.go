package ambient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleep_ReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	err := Sleep(context.Background(), 10*time.Millisecond)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleep_CancellationIsImmediate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "a canceled context must not block for the full duration")
}

func TestSleep_ZeroDurationReturnsImmediately(t *testing.T) {
	err := Sleep(context.Background(), 0)
	assert.NoError(t, err)
}
