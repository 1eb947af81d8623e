package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequeueOnlyDueMessages(t *testing.T) {
	q := NewQueue()
	now := time.Now()

	q.Enqueue(&Message{ID: "later", RetryAt: now.Add(time.Minute)})
	q.Enqueue(&Message{ID: "due", RetryAt: now.Add(-time.Second)})
	q.Enqueue(&Message{ID: "exact", RetryAt: now})

	msg := q.Dequeue(now)
	require.NotNil(t, msg)
	assert.Equal(t, "due", msg.ID)

	msg = q.Dequeue(now)
	require.NotNil(t, msg)
	assert.Equal(t, "exact", msg.ID)

	assert.Nil(t, q.Dequeue(now))
	assert.Equal(t, 1, q.Size())

	msg = q.Dequeue(now.Add(2 * time.Minute))
	require.NotNil(t, msg)
	assert.Equal(t, "later", msg.ID)
	assert.Zero(t, q.Size())
}

func TestSnapshotIsACopy(t *testing.T) {
	q := NewQueue()
	q.Enqueue(&Message{ID: "a"})

	snap := q.Snapshot()
	snap[0] = &Message{ID: "b"}

	assert.Equal(t, "a", q.Snapshot()[0].ID)
}

func TestExhausted(t *testing.T) {
	msg := &Message{MaxRetries: 2}
	assert.False(t, msg.Exhausted())
	msg.RetryCount = 2
	assert.True(t, msg.Exhausted())
}

func TestConcurrentEnqueue(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(&Message{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Size())
}
