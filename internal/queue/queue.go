// internal/queue/queue.go
package queue

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// TopicDispatchAudit carries model.AuditEvent payloads from the admin server to the audit worker.
const TopicDispatchAudit = "dispatch_audit"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to subscribers in the same process. A failed handler is logged, not retried.
type InMemoryQueue struct {
	Log logrus.FieldLogger

	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log logrus.FieldLogger) *InMemoryQueue {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InMemoryQueue{
		Log:      log,
		handlers: make(map[string][]func(payload any) error),
	}
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.process(topic, handler, payload)
	}
	return nil
}

func (q *InMemoryQueue) process(topic string, handler func(payload any) error, payload any) {
	defer q.wg.Done()
	if err := handler(payload); err != nil {
		q.Log.WithError(err).WithField("topic", topic).Warn("queue handler failed")
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Drain waits for in-flight deliveries, used on shutdown.
func (q *InMemoryQueue) Drain() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
