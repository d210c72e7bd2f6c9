package queue

import (
	"context"
	"sync"
)

// MockQueue is an in-memory Queue for tests. Publish appends to an
// in-memory log; Consume replays whatever was queued with PushIncoming.
type MockQueue struct {
	mu        sync.Mutex
	incoming  chan Delivery
	published []PublishedMessage

	acked  int
	nacked []bool // requeue flag per nack, in order
}

// PublishedMessage records one Publish call for assertions.
type PublishedMessage struct {
	Queue string
	Body  []byte
}

// NewMockQueue creates a MockQueue with room for bufferSize pending deliveries.
func NewMockQueue(bufferSize int) *MockQueue {
	return &MockQueue{incoming: make(chan Delivery, bufferSize)}
}

// PushIncoming enqueues a delivery as if it arrived over AMQP. The enqueued
// delivery's Ack/Nack calls are recorded for test assertions.
func (m *MockQueue) PushIncoming(body []byte) {
	m.incoming <- Delivery{
		Body: body,
		ack: func(bool) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.acked++
			return nil
		},
		nack: func(_ bool, requeue bool) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.nacked = append(m.nacked, requeue)
			return nil
		},
	}
}

func (m *MockQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	return m.incoming, nil
}

func (m *MockQueue) Publish(ctx context.Context, queueName string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, PublishedMessage{Queue: queueName, Body: body})
	return nil
}

// Declare is a no-op for the in-memory mock; there is no real queue to create.
func (m *MockQueue) Declare(ctx context.Context, queueName string) error { return nil }

func (m *MockQueue) Close() error { return nil }

// Published returns a copy of everything published so far.
func (m *MockQueue) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// Acked returns how many deliveries were acked.
func (m *MockQueue) Acked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked
}

// Nacked returns the requeue flag passed to each Nack call, in order.
func (m *MockQueue) Nacked() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bool, len(m.nacked))
	copy(out, m.nacked)
	return out
}
