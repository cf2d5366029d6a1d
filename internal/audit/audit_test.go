package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "[ACCOUNT_CLAIM] User ID: 1, Username: alice - claimed Netflix",
		Format(KindClaim, "claimed Netflix", &Actor{ID: "1", Username: "alice"}))
	assert.Equal(t, "[REFERRAL] User ID: 2, Username: N/A - ok", Format(KindReferral, "ok", &Actor{ID: "2"}))
	assert.Equal(t, "[ERROR] polling stopped", Format(KindError, "polling stopped", nil))
}

type recordingPoster struct {
	chat, text string
	err        error
}

func (p *recordingPoster) Notify(_ context.Context, chatID, text string) error {
	p.chat, p.text = chatID, text
	return p.err
}

func TestChannelSink_ForwardsAndSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	poster := &recordingPoster{err: errors.New("telegram down")}

	sink := NewChannelSink(poster, "-100", log)
	sink.LogEvent(context.Background(), KindStock, "added 3 items", nil)

	assert.Equal(t, "-100", poster.chat)
	assert.Equal(t, "[STOCK] added 3 items", poster.text)
	assert.Contains(t, buf.String(), "failed to forward audit event")
}

func TestMultiSkipsNil(t *testing.T) {
	poster := &recordingPoster{}
	Multi{nil, NewChannelSink(poster, "1", nil), Nop{}}.LogEvent(context.Background(), KindAdmin, "x", nil)
	assert.Equal(t, "[ADMIN] x", poster.text)
}
