package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/jobs"
	"github.com/Proton-105/rewards-bot/internal/ledger"
	"github.com/Proton-105/rewards-bot/internal/testutil"
)

type recordingNotifier struct {
	chatID, text string
	err          error
}

func (n *recordingNotifier) Notify(_ context.Context, chatID, text string) error {
	n.chatID, n.text = chatID, text
	return n.err
}

type staticSource struct {
	snap  ledger.Snapshot
	err   error
	calls int
}

func (s *staticSource) Snapshot(context.Context) (ledger.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func TestNotifyHandlerDelivers(t *testing.T) {
	task, err := jobs.NewNotifyTask("42", "hello", 3)
	require.NoError(t, err)

	sender := &recordingNotifier{}
	h := NewNotifyHandler(sender, testutil.DiscardLogger())

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, "42", sender.chatID)
	assert.Equal(t, "hello", sender.text)
}

func TestNotifyHandlerReturnsSendErrorForRetry(t *testing.T) {
	task, err := jobs.NewNotifyTask("42", "hello", 3)
	require.NoError(t, err)

	boom := errors.New("telegram down")
	h := NewNotifyHandler(&recordingNotifier{err: boom}, testutil.DiscardLogger())

	err = h.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestNotifyHandlerSkipsRetryOnBadPayload(t *testing.T) {
	task := asynq.NewTask(jobs.TaskTypeNotify, []byte("{not json"))
	h := NewNotifyHandler(&recordingNotifier{}, testutil.DiscardLogger())

	err := h.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestStockRefreshHandler(t *testing.T) {
	task := jobs.NewStockRefreshTask()

	source := &staticSource{snap: ledger.Snapshot{Users: 3, KeysTotal: 4, KeysClaimed: 1, Stock: map[string]int64{"Netflix": 2}}}
	h := NewStockRefreshHandler(source, testutil.DiscardLogger())

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, 1, source.calls)

	source.err = errors.New("db gone")
	assert.Error(t, h.ProcessTask(context.Background(), task))
}
