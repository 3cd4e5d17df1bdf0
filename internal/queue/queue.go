package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueSceneVideo = "storyboard:queue:scene_video"
	QueueSceneAudio = "storyboard:queue:scene_audio"
)

// Job is one scene media render.
type Job struct {
	ID        uuid.UUID      `json:"id"`
	Type      models.JobType `json:"type"`
	ProjectID string         `json:"project_id"`
	SceneID   string         `json:"scene_id"`
	CreatedAt time.Time      `json:"created_at"`
}

// Broker moves jobs from the API to the worker.
type Broker interface {
	Enqueue(ctx context.Context, queueName string, job *Job) error
	// Dequeue waits up to timeout. It returns nil, nil when nothing arrived.
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error)
	// Length reports how many jobs are waiting.
	Length(ctx context.Context, queueName string) (int64, error)
	Close() error
}

// NameFor maps a job type to its queue.
func NameFor(t models.JobType) (string, error) {
	switch t {
	case models.JobTypeSceneVideo:
		return QueueSceneVideo, nil
	case models.JobTypeSceneAudio:
		return QueueSceneAudio, nil
	}
	return "", fmt.Errorf("unknown job type: %s", t)
}

// EnqueueSceneJob queues a scene video or audio render.
func EnqueueSceneJob(ctx context.Context, b Broker, t models.JobType, projectID, sceneID string, jobID uuid.UUID) error {
	name, err := NameFor(t)
	if err != nil {
		return err
	}
	return b.Enqueue(ctx, name, &Job{
		ID:        jobID,
		Type:      t,
		ProjectID: projectID,
		SceneID:   sceneID,
	})
}

// Queue is a Redis list broker: RPUSH to enqueue, BLPOP to dequeue.
type Queue struct {
	client *redis.Client
}

var _ Broker = (*Queue)(nil)

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// Client exposes the connection so the state store can share it.
func (q *Queue) Client() *redis.Client {
	return q.client
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	return decodeJob([]byte(result[1]))
}

func (q *Queue) Length(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

func decodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
