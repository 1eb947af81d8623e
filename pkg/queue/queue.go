package queue

import (
	"sync"
	"time"
)

// Message is an outgoing event waiting for another delivery attempt.
type Message struct {
	ID         string
	Key        []byte
	Value      []byte
	RetryAt    time.Time
	RetryCount int
	MaxRetries int
}

// Exhausted reports whether the message has used up its retries.
func (m *Message) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}

type Queue struct {
	items []*Message
	mu    sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{
		items: make([]*Message, 0),
	}
}

func (q *Queue) Enqueue(msg *Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// Dequeue removes and returns the first message due at now, or nil.
func (q *Queue) Dequeue(now time.Time) *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, msg := range q.items {
		if !msg.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return msg
		}
	}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Snapshot() []*Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]*Message, len(q.items))
	copy(result, q.items)
	return result
}
