package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// ReferralEngine grants the one-time referral bonus once a referred user
// gets verified.
type ReferralEngine struct {
	store    *repository.Store
	registry *Registry
	sink     audit.Sink
	notifier notify.Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewReferralEngine(store *repository.Store, registry *Registry, sink audit.Sink, notifier notify.Notifier, log *slog.Logger) *ReferralEngine {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &ReferralEngine{
		store:    store,
		registry: registry,
		sink:     sink,
		notifier: notify.NewBestEffort(notifier, log),
		now:      time.Now,
		log:      log.With(slog.String("component", "referral_engine")),
	}
}

type referralOutcome struct {
	referredName string
	referrerID   string
	bonus        int64
	balance      int64
	granted      bool
	skipReason   string
}

// CompleteReferralIfPending verifies userID and, if a referrer is pending,
// credits the referrer exactly once. It is a silent no-op for unknown,
// already verified or unreferred users. It reports whether a bonus was
// granted.
func (e *ReferralEngine) CompleteReferralIfPending(ctx context.Context, userID string) (bool, error) {
	var out referralOutcome

	err := e.store.WithTx(ctx, "complete referral", func(q *repository.Queries) error {
		out = referralOutcome{}

		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil || user.PendingReferrer == "" || user.Verified {
			return nil
		}
		out.referredName = user.Name
		out.referrerID = user.PendingReferrer

		if _, err := q.CompleteVerification(ctx, userID); err != nil {
			return err
		}

		if out.referrerID == userID {
			out.skipReason = "self referral"
			return nil
		}

		referrer, err := q.GetUser(ctx, out.referrerID)
		if err != nil {
			return err
		}
		if referrer == nil {
			out.skipReason = "referrer does not exist"
			return nil
		}

		inserted, err := q.InsertReferral(ctx, out.referrerID, userID, e.now())
		if err != nil {
			return err
		}
		if !inserted {
			out.skipReason = "referral already recorded"
			return nil
		}

		bonus, err := e.registry.referralBonusTx(ctx, q)
		if err != nil {
			return err
		}

		balance, err := q.CreditReferral(ctx, out.referrerID, bonus)
		if err != nil {
			return err
		}

		out.bonus, out.balance, out.granted = bonus, balance, true
		return nil
	})

	metrics.RecordLedgerOperation("referral", resultLabel(err))
	if err != nil {
		return false, err
	}

	actor := &audit.Actor{ID: userID, Username: out.referredName}
	if out.skipReason != "" {
		e.log.WarnContext(ctx, "referral bonus skipped",
			slog.String("user_id", userID),
			slog.String("referrer_id", out.referrerID),
			slog.String("reason", out.skipReason),
		)
		e.sink.LogEvent(ctx, audit.KindReferralSkipped,
			fmt.Sprintf("Referral from %s skipped: %s", out.referrerID, out.skipReason), actor)
		return false, nil
	}
	if !out.granted {
		return false, nil
	}

	metrics.RecordPointsCredited("referral", out.bonus)
	_ = e.notifier.Notify(ctx, out.referrerID,
		fmt.Sprintf("🎉 Your referral %s just got verified! You earned %d pts. Balance: %d pts.", displayName(out.referredName, userID), out.bonus, out.balance))
	e.sink.LogEvent(ctx, audit.KindReferral,
		fmt.Sprintf("User %s completed referral of %s. Referrer earned %d pts.", out.referrerID, userID, out.bonus), actor)
	return true, nil
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
