// Package jobs moves notification delivery and periodic housekeeping onto
// an asynq queue backed by Redis.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeNotify       = "notify:send"
	TaskTypeStockRefresh = "stock:refresh"
)

// Queues in priority order. Worker weights are in DefaultQueues.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

const (
	notifyTimeout       = 30 * time.Second
	stockRefreshTimeout = 20 * time.Second
)

var errEmptyChat = errors.New("jobs: notify task without chat id")

// NotifyPayload is one outbound chat message.
type NotifyPayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// NewNotifyTask builds a delivery on the critical queue. Each attempt is
// bounded so a hung Bot API call cannot hold a worker slot.
func NewNotifyTask(chatID, text string, maxRetry int) (*asynq.Task, error) {
	if chatID == "" {
		return nil, errEmptyChat
	}
	payload, err := json.Marshal(NotifyPayload{ChatID: chatID, Text: text})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode notify payload: %w", err)
	}

	return asynq.NewTask(TaskTypeNotify, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(max(maxRetry, 0)),
		asynq.Timeout(notifyTimeout),
	), nil
}

// DecodeNotifyPayload parses the payload of a TaskTypeNotify task.
func DecodeNotifyPayload(t *asynq.Task) (NotifyPayload, error) {
	var p NotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("jobs: decode notify payload: %w", err)
	}
	if p.ChatID == "" {
		return p, errEmptyChat
	}
	return p, nil
}

// NewStockRefreshTask builds the gauge refresh. It carries no payload and
// is never retried, the next tick recomputes everything anyway.
func NewStockRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeStockRefresh, nil,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(0),
		asynq.Timeout(stockRefreshTimeout),
	)
}
