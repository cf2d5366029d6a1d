package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager enqueues tasks.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// NewManager returns an asynq client. It satisfies Manager directly.
func NewManager(redisOpt asynq.RedisConnOpt) Manager {
	return &client{asynq.NewClient(redisOpt)}
}

type client struct {
	*asynq.Client
}

func (c *client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.Client.EnqueueContext(ctx, task, opts...)
}

// QueueNotifier is a notify.Notifier that hands messages to the worker,
// keeping Bot API latency and retries off the update path.
type QueueNotifier struct {
	manager  Manager
	maxRetry int
	log      *slog.Logger
}

func NewQueueNotifier(manager Manager, maxRetry int, log *slog.Logger) *QueueNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &QueueNotifier{manager: manager, maxRetry: maxRetry, log: log}
}

// Notify reports enqueue failures only. Delivery errors surface in the
// worker and are retried there.
func (n *QueueNotifier) Notify(ctx context.Context, chatID, text string) error {
	task, err := NewNotifyTask(chatID, text, n.maxRetry)
	if err != nil {
		return err
	}

	info, err := n.manager.Enqueue(ctx, task)
	if err != nil {
		return err
	}
	n.log.DebugContext(ctx, "notification queued", slog.String("chat_id", chatID), slog.String("task_id", info.ID))
	return nil
}
