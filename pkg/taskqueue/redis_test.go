package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupQueue 基于miniredis创建队列
func setupQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.RetryLimit = 2

	q, err := NewRedisQueue(cfg, WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q, mr
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := NewRedisQueue(&Config{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisQueue_Ping(t *testing.T) {
	q, mr := setupQueue(t)
	require.NoError(t, q.Ping(context.Background()))

	mr.Close()
	assert.Error(t, q.Ping(context.Background()))
}

func TestRedisQueue_Enqueue(t *testing.T) {
	q, mr := setupQueue(t)
	ctx := context.Background()

	payload := &IngestLinkPayload{Link: "https://pubmed.ncbi.nlm.nih.gov/1", UserID: "u-1", UserFullName: "Ada"}
	taskID, err := q.Enqueue(ctx, TaskIngestLink, payload.Link, payload)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, TaskIngestLink, task.Type)
	assert.Equal(t, payload.Link, task.Key)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 2, task.MaxRetries)

	decoded, err := DecodeIngestLink(task)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	assert.True(t, mr.Exists(taskKeyPrefix+taskID))
	ttl := mr.TTL(taskKeyPrefix + taskID)
	assert.Equal(t, defaultTaskExpiry, ttl)
}

func TestRedisQueue_GetTask_NotFound(t *testing.T) {
	q, _ := setupQueue(t)
	_, err := q.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRedisQueue_GetTasksByKey(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()
	link := "https://example.com/a"

	first, err := q.Enqueue(ctx, TaskIngestLink, link, &IngestLinkPayload{Link: link})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := q.EnqueueIn(ctx, TaskIngestLink, link, &IngestLinkPayload{Link: link}, time.Hour)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, TaskIngestLink, "https://example.com/b", &IngestLinkPayload{Link: "https://example.com/b"})
	require.NoError(t, err)

	tasks, err := q.GetTasksByKey(ctx, link)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first, tasks[0].ID)
	assert.Equal(t, second, tasks[1].ID)

	none, err := q.GetTasksByKey(ctx, "https://example.com/none")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRedisQueue_UpdateTaskStatus(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskReprocessDocument, "doc-1", &ReprocessPayload{DocumentID: "doc-1"})
	require.NoError(t, err)

	require.NoError(t, q.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""))
	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.NotNil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)

	require.NoError(t, q.UpdateTaskStatus(ctx, taskID, StatusCompleted, map[string]int{"chunks": 3}, ""))
	task, err = q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.JSONEq(t, `{"chunks":3}`, string(task.Result))

	assert.ErrorIs(t, q.UpdateTaskStatus(ctx, "missing", StatusFailed, nil, "x"), ErrTaskNotFound)
}

func TestRedisQueue_WaitForTask(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskIngestLink, "k", &IngestLinkPayload{Link: "https://example.com"})
	require.NoError(t, err)

	_, err = q.WaitForTask(ctx, taskID, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTaskTimeout)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.UpdateTaskStatus(context.Background(), taskID, StatusCompleted, nil, "")
	}()

	task, err := q.WaitForTask(ctx, taskID, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestRedisQueue_Run(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	taskID, err := q.Enqueue(ctx, TaskIngestLink, "https://example.com/a", &IngestLinkPayload{Link: "https://example.com/a"})
	require.NoError(t, err)

	var seen *IngestLinkPayload
	handler := HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
		payload, err := DecodeIngestLink(task)
		if err != nil {
			return nil, err
		}
		seen = payload
		return map[string]string{"document_id": "doc-1"}, nil
	})

	require.NoError(t, q.run(ctx, taskID, handler))
	require.NotNil(t, seen)
	assert.Equal(t, "https://example.com/a", seen.Link)

	task, err := q.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.JSONEq(t, `{"document_id":"doc-1"}`, string(task.Result))
}

func TestRedisQueue_RunFailures(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	t.Run("handler error", func(t *testing.T) {
		taskID, err := q.Enqueue(ctx, TaskIngestLink, "k1", &IngestLinkPayload{Link: "https://example.com/1"})
		require.NoError(t, err)

		boom := errors.New("upstream unavailable")
		err = q.run(ctx, taskID, HandlerFunc(func(context.Context, *Task) (interface{}, error) {
			return nil, boom
		}))
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, asynq.SkipRetry))

		task, err := q.GetTask(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, task.Status)
		assert.Equal(t, "upstream unavailable", task.Error)
	})

	t.Run("invalid payload skips retry", func(t *testing.T) {
		taskID, err := q.Enqueue(ctx, TaskIngestLink, "k2", &IngestLinkPayload{})
		require.NoError(t, err)

		err = q.run(ctx, taskID, HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
			_, err := DecodeIngestLink(task)
			return nil, err
		}))
		assert.ErrorIs(t, err, ErrInvalidPayload)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("missing task record", func(t *testing.T) {
		err := q.run(ctx, "gone", HandlerFunc(func(context.Context, *Task) (interface{}, error) {
			return nil, nil
		}))
		assert.ErrorIs(t, err, ErrTaskNotFound)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestDecodePayloads(t *testing.T) {
	_, err := DecodeIngestLink(&Task{})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodeIngestLink(&Task{Payload: []byte(`{"link":`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	p, err := DecodeReprocess(&Task{Payload: []byte(`{"document_id":"doc-9"}`)})
	require.NoError(t, err)
	assert.Equal(t, "doc-9", p.DocumentID)

	_, err = DecodeReprocess(&Task{Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNewQueue(t *testing.T) {
	mr := miniredis.RunT(t)

	q, err := NewQueue("redis", &Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.NoError(t, q.Close())

	_, err = NewQueue("kafka", nil)
	assert.Error(t, err)
}

// TestRedisWorker 需要本地Redis服务
func TestRedisWorker(t *testing.T) {
	redisAddr := "localhost:6379"

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis worker test: Redis not available at localhost:6379")
	}
	_ = client.Close()

	cfg := DefaultConfig()
	cfg.RedisAddr = redisAddr
	cfg.Concurrency = 2
	cfg.RetryDelay = time.Second

	q, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	defer q.Close()

	worker := NewRedisWorker(q, cfg)
	processed := make(chan string, 1)
	worker.RegisterHandler(TaskIngestLink, HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
		processed <- task.ID
		return nil, nil
	}))
	require.NoError(t, worker.Start())
	defer worker.Stop()

	taskID, err := q.Enqueue(ctx, TaskIngestLink, "https://example.com/w", &IngestLinkPayload{Link: "https://example.com/w"})
	require.NoError(t, err)

	task, err := q.WaitForTask(ctx, taskID, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, taskID, <-processed)
}
