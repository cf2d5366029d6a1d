package state

import (
	"fmt"
	"time"
)

// State represents a dialog state of the bot.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateAwaitingReview indicates that the next message is a review.
	StateAwaitingReview State = "awaiting_review"
	// StateAwaitingReport indicates that the next message is a problem report.
	StateAwaitingReport State = "awaiting_report"
	// StateAwaitingRedeemCode indicates that the next message is a key code.
	StateAwaitingRedeemCode State = "awaiting_redeem_code"

	StateAdminPlatformName   State = "admin_platform_name"
	StateAdminPlatformRename State = "admin_platform_rename"
	StateAdminPlatformPrice  State = "admin_platform_price"
	StateAdminStockUpload    State = "admin_stock_upload"
	StateAdminChannelLink    State = "admin_channel_link"
	StateAdminAddAdmin       State = "admin_add_admin"
	StateAdminBroadcast      State = "admin_broadcast"

	// StateError indicates that the dialog broke and requires recovery.
	StateError State = "error"
)

// Context keys carried between dialog steps.
const (
	KeyPlatform     = "platform"
	KeyPlatformKind = "platform_kind"
	KeyReplace      = "replace"
)

// UserState captures the current dialog state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// String returns a context value formatted as text, or "" when absent.
func (s *UserState) String(key string) string {
	if s == nil || s.Context == nil {
		return ""
	}
	v, ok := s.Context[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Bool reports whether the context value is a true boolean.
func (s *UserState) Bool(key string) bool {
	if s == nil || s.Context == nil {
		return false
	}
	b, _ := s.Context[key].(bool)
	return b
}
