// Package ratelimit throttles updates per user and per costly command using
// sliding windows kept in Redis, with an in-process fallback.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrLimitExceeded is returned together with a Result whose Allowed is false.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result of one Check. ResetAt is when the next attempt will be admitted.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter rounds the wait until ResetAt up to whole seconds, at least one.
func (r *Result) RetryAfter(now time.Time) int {
	if r == nil {
		return 1
	}
	wait := r.ResetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// Limiter admits at most limit events per key within window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// GlobalKey is shared by every update the bot receives.
const GlobalKey = "global"

// UserKey is the per-user bucket.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// CommandKey is the bucket of one command for one user.
func CommandKey(command string, userID int64) string {
	return "cmd:" + command + ":" + strconv.FormatInt(userID, 10)
}
