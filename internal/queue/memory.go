package queue

import (
	"context"
	"sync"
	"time"
)

const memoryQueueSize = 256

// Memory is an in-process broker used when no Redis URL is configured.
type Memory struct {
	mu     sync.Mutex
	queues map[string]chan *Job
}

var _ Broker = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{queues: make(map[string]chan *Job)}
}

func (m *Memory) queue(name string) chan *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.queues[name]
	if !ok {
		ch = make(chan *Job, memoryQueueSize)
		m.queues[name] = ch
	}
	return ch
}

func (m *Memory) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()
	j := *job

	select {
	case m.queue(queueName) <- &j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case job := <-m.queue(queueName):
		return job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memory) Length(ctx context.Context, queueName string) (int64, error) {
	return int64(len(m.queue(queueName))), nil
}

func (m *Memory) Close() error {
	return nil
}
