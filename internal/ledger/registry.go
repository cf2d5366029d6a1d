package ledger

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/Proton-105/rewards-bot/internal/database"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/repository"
)

const (
	KeyClaimCost     = "account_claim_cost"
	KeyReferralBonus = "referral_bonus"

	DefaultClaimCost     int64 = 10
	DefaultReferralBonus int64 = 5
)

type configStore interface {
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Registry reads typed tunables from the config table, falling back to
// compiled defaults when a key is absent or unparsable.
type Registry struct {
	store                *repository.Store
	claimCostDefault     int64
	referralBonusDefault int64
	log                  *slog.Logger
}

func NewRegistry(store *repository.Store, claimCost, referralBonus int64, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if claimCost <= 0 {
		claimCost = DefaultClaimCost
	}
	if referralBonus < 0 {
		referralBonus = DefaultReferralBonus
	}
	return &Registry{
		store:                store,
		claimCostDefault:     claimCost,
		referralBonusDefault: referralBonus,
		log:                  log.With(slog.String("component", "config_registry")),
	}
}

func (r *Registry) ClaimCost(ctx context.Context) (int64, error) {
	value, err := r.intValue(ctx, r.store, KeyClaimCost, r.claimCostDefault)
	return value, database.Classify("get claim cost", err)
}

func (r *Registry) ReferralBonus(ctx context.Context) (int64, error) {
	value, err := r.intValue(ctx, r.store, KeyReferralBonus, r.referralBonusDefault)
	return value, database.Classify("get referral bonus", err)
}

func (r *Registry) SetClaimCost(ctx context.Context, value int64) error {
	return r.setInt(ctx, r.store, KeyClaimCost, value)
}

func (r *Registry) SetReferralBonus(ctx context.Context, value int64) error {
	return r.setInt(ctx, r.store, KeyReferralBonus, value)
}

// Get returns a raw value and whether it is set.
func (r *Registry) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := r.store.GetConfig(ctx, key)
	if err != nil {
		return "", false, database.Classify("get config", err)
	}
	return value, ok, nil
}

func (r *Registry) Set(ctx context.Context, key, value string) error {
	return database.Classify("set config", r.store.SetConfig(ctx, key, value))
}

func (r *Registry) claimCostTx(ctx context.Context, q configStore) (int64, error) {
	return r.intValue(ctx, q, KeyClaimCost, r.claimCostDefault)
}

func (r *Registry) referralBonusTx(ctx context.Context, q configStore) (int64, error) {
	return r.intValue(ctx, q, KeyReferralBonus, r.referralBonusDefault)
}

func (r *Registry) intValue(ctx context.Context, q configStore, key string, fallback int64) (int64, error) {
	raw, ok, err := q.GetConfig(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		r.log.WarnContext(ctx, "invalid config value, using default",
			slog.String("key", key), slog.String("value", raw), slog.Int64("default", fallback))
		return fallback, nil
	}
	return value, nil
}

func (r *Registry) setInt(ctx context.Context, q configStore, key string, value int64) error {
	if value < 0 {
		return apperrors.NewValidationError(key + " must not be negative")
	}
	return database.Classify("set config", q.SetConfig(ctx, key, strconv.FormatInt(value, 10)))
}
