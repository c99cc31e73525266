package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/pkg/errno"
)

func TestQueueFIFO(t *testing.T) {
	q := NewMemoryJobQueue(3)
	for i, id := range []string{"a", "b", "c"} {
		pos, err := q.Submit(id)
		require.NoError(t, err)
		assert.Equal(t, i+1, pos)
	}
	_, err := q.Submit("d")
	assert.True(t, errors.Is(err, errno.ErrQueueFull))

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	m := q.GetMetrics()
	assert.Equal(t, uint64(3), m.EnqueueCount)
	assert.Equal(t, uint64(3), m.DequeueCount)
	assert.Equal(t, uint64(1), m.RejectedCount)
}

func TestQueueReservationHoldsSlot(t *testing.T) {
	q := NewMemoryJobQueue(1)
	res, err := q.Reserve()
	require.NoError(t, err)

	_, err = q.Reserve()
	assert.True(t, errors.Is(err, errno.ErrQueueFull))

	res.Release()
	res.Release()
	assert.Equal(t, 0, q.GetMetrics().Reserved)

	res, err = q.Reserve()
	require.NoError(t, err)
	pos, err := res.Commit("a")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	res.Release()
	assert.Equal(t, 1, q.Size())

	_, err = res.Commit("b")
	assert.Error(t, err)
}

func TestQueueCloseUnblocksDequeue(t *testing.T) {
	q := NewMemoryJobQueue(1)
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, errno.ErrQueueClosed))
	case <-time.After(time.Second):
		t.Fatal("dequeue still blocked")
	}
	_, err := q.Reserve()
	assert.True(t, errors.Is(err, errno.ErrQueueClosed))
}

func TestQueueDequeueHonoursContext(t *testing.T) {
	q := NewMemoryJobQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
