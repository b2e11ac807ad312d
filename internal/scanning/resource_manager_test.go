package scanning

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/recon/internal/metrics/mocks"
)

func TestFixedResourceManager_Acquire(t *testing.T) {
	t.Run("successful acquisition", func(t *testing.T) {
		rm := NewFixedResourceManager(5, nil)

		require.NoError(t, rm.Acquire(context.Background(), "10.0.0.1:22/tcp"))
		assert.Equal(t, 1, rm.Peak())
		assert.Equal(t, 5, rm.Capacity())

		rm.Release("10.0.0.1:22/tcp")
		require.NoError(t, rm.Acquire(context.Background(), "10.0.0.1:22/tcp"))
	})

	t.Run("exhaustion blocks until deadline", func(t *testing.T) {
		rm := NewFixedResourceManager(2, nil)
		ctx := context.Background()

		require.NoError(t, rm.Acquire(ctx, "a"))
		require.NoError(t, rm.Acquire(ctx, "b"))

		ctx3, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, rm.Acquire(ctx3, "c"), context.DeadlineExceeded)

		rm.Release("a")
		rm.Release("b")
	})

	t.Run("duplicate id rejected without leaking a slot", func(t *testing.T) {
		rm := NewFixedResourceManager(2, nil)
		ctx := context.Background()

		require.NoError(t, rm.Acquire(ctx, "a"))
		assert.Error(t, rm.Acquire(ctx, "a"))
		require.NoError(t, rm.Acquire(ctx, "b"))
		assert.Equal(t, 2, rm.Peak())
	})

	t.Run("closed manager", func(t *testing.T) {
		rm := NewFixedResourceManager(1, nil)
		require.NoError(t, rm.Close())
		assert.Error(t, rm.Acquire(context.Background(), "a"))
	})
}

func TestFixedResourceManager_ReleaseUnknownIsNoop(t *testing.T) {
	rm := NewFixedResourceManager(1, nil)
	rm.Release("never-acquired")

	require.NoError(t, rm.Acquire(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rm.Acquire(ctx, "b"), context.DeadlineExceeded)
}

func TestFixedResourceManager_PeakNeverExceedsCapacity(t *testing.T) {
	const width = 4
	rm := NewFixedResourceManager(width, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("probe-%d", i)
			if err := rm.Acquire(context.Background(), id); err != nil {
				return
			}
			time.Sleep(2 * time.Millisecond)
			rm.Release(id)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, rm.Peak(), width)
	assert.Greater(t, rm.Peak(), 0)

	for i := 0; i < width; i++ {
		require.NoError(t, rm.Acquire(context.Background(), fmt.Sprintf("after-%d", i)))
	}
}

func TestFixedResourceManager_CapacityDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, NewFixedResourceManager(0, nil).Capacity())
	assert.Equal(t, 1, NewFixedResourceManager(-3, nil).Capacity())
}

func TestFixedResourceManager_ReportsActiveProbes(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockScanMetrics(ctrl)
	m.EXPECT().IncActiveProbes().Times(1)
	m.EXPECT().DecActiveProbes().Times(1)

	rm := NewFixedResourceManager(1, m)
	require.NoError(t, rm.Acquire(context.Background(), "a"))
	rm.Release("a")
	rm.Release("a")
}

