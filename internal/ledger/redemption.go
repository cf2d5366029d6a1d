package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/rewards-bot/internal/audit"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

type RedemptionResult struct {
	Code       string
	Points     int64
	NewBalance int64
}

// RedemptionEngine credits single-use keys.
type RedemptionEngine struct {
	store *repository.Store
	sink  audit.Sink
	now   func() time.Time
	log   *slog.Logger
}

func NewRedemptionEngine(store *repository.Store, sink audit.Sink, log *slog.Logger) *RedemptionEngine {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &RedemptionEngine{
		store: store,
		sink:  sink,
		now:   time.Now,
		log:   log.With(slog.String("component", "redemption_engine")),
	}
}

// NormalizeCode trims whitespace and upper-cases a user supplied key.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RedeemCode marks the key claimed by userID and credits its points. The
// conditional update on the claimed flag makes the credit happen at most
// once per key, whatever the number of concurrent attempts.
func (e *RedemptionEngine) RedeemCode(ctx context.Context, code, userID string) (RedemptionResult, error) {
	code = NormalizeCode(code)
	actor := &audit.Actor{ID: userID}
	var res RedemptionResult

	err := e.store.WithTx(ctx, "redeem code", func(q *repository.Queries) error {
		key, err := q.GetKey(ctx, code)
		if err != nil {
			return err
		}
		if key == nil {
			return ErrKeyNotFound
		}
		if key.Claimed {
			return ErrKeyAlreadyClaimed
		}

		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		actor.Username = user.Name
		if user.Banned {
			return ErrUserBanned
		}

		claimed, err := q.ClaimKey(ctx, code, userID, e.now())
		if err != nil {
			return err
		}
		if !claimed {
			return ErrKeyAlreadyClaimed
		}

		balance, err := q.AddPoints(ctx, userID, key.Points)
		if err != nil {
			return err
		}

		res = RedemptionResult{Code: code, Points: key.Points, NewBalance: balance}
		return nil
	})

	metrics.RecordLedgerOperation("redeem", resultLabel(err))
	if err != nil {
		if apperrors.IsUserFacing(err) {
			e.sink.LogEvent(ctx, audit.KindKeyRejected, fmt.Sprintf("Key %s rejected: %v", code, err), actor)
		}
		return RedemptionResult{}, err
	}

	metrics.RecordPointsCredited("key", res.Points)
	e.sink.LogEvent(ctx, audit.KindKeyClaim,
		fmt.Sprintf("User %s redeemed key %s for %d pts. New balance: %d pts.", userID, code, res.Points, res.NewBalance), actor)
	return res, nil
}
