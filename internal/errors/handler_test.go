package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler_Replies(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reply     string
		retryable bool
		logged    string
	}{
		{
			name:   "validation",
			err:    NewValidationError("amount must be a whole number"),
			reply:  "Invalid input. amount must be a whole number",
			logged: `"level":"INFO","msg":"request rejected"`,
		},
		{
			name:      "wrapped persistence",
			err:       fmt.Errorf("claim: %w", NewPersistenceError("claim", assertErr, true)),
			reply:     "Temporary problem on our side, please try again later.",
			retryable: true,
			logged:    `"level":"ERROR","msg":"application error"`,
		},
		{
			name:      "notification",
			err:       NewNotificationError("42", assertErr),
			reply:     genericUserMessage,
			retryable: true,
			logged:    `"level":"WARN","msg":"notification failed"`,
		},
		{
			name:   "foreign",
			err:    assertErr,
			reply:  genericUserMessage,
			logged: `"msg":"unclassified error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHandler(slog.New(slog.NewJSONHandler(&buf, nil)), false)

			reply, retryable := h.Handle(context.Background(), tt.err)
			assert.Equal(t, tt.reply, reply)
			assert.Equal(t, tt.retryable, retryable)
			assert.Contains(t, buf.String(), tt.logged)
		})
	}
}

func TestHandler_NilError(t *testing.T) {
	reply, retryable := NewHandler(nil, false).Handle(context.Background(), nil)
	assert.Empty(t, reply)
	assert.False(t, retryable)
}

var assertErr = errors.New("boom")
