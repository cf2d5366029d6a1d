// Package ledger implements the points economy: account registration,
// stock claims, key redemption, referral bonuses and the administrative
// operations around them. Every balance or stock mutation commits in a
// single transaction together with its dependent writes.
package ledger

import (
	"context"
	"log/slog"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/database"
	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/pkg/config"
)

// Ledger groups the engines that share one store.
type Ledger struct {
	Accounts    *Accounts
	Claims      *ClaimEngine
	Redemptions *RedemptionEngine
	Referrals   *ReferralEngine
	Registry    *Registry
	Admin       *Admin

	store           *repository.Store
	leaderboardSize int
}

// New wires the engines around store using cfg for compiled-in defaults.
func New(store *repository.Store, cfg config.LedgerConfig, owners []int64, sink audit.Sink, notifier notify.Notifier, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}

	initial := int64(cfg.InitialPoints)
	if initial == 0 {
		initial = domain.DefaultInitialPoints
	}

	registry := NewRegistry(store, int64(cfg.ClaimCost), int64(cfg.ReferralBonus), log)
	accounts := NewAccounts(store, owners, initial, sink, log)
	keys := KeyDefaults{
		Normal:    int64(cfg.NormalKeyPoints),
		Premium:   int64(cfg.PremiumKeyPoints),
		MaxPerRun: cfg.MaxKeysPerCommand,
	}

	size := cfg.LeaderboardSize
	if size <= 0 {
		size = 10
	}

	return &Ledger{
		Accounts:        accounts,
		Claims:          NewClaimEngine(store, registry, sink, log),
		Redemptions:     NewRedemptionEngine(store, sink, log),
		Referrals:       NewReferralEngine(store, registry, sink, notifier, log),
		Registry:        registry,
		Admin:           NewAdmin(store, registry, accounts, keys, sink, notifier, log),
		store:           store,
		leaderboardSize: size,
	}
}

func (l *Ledger) ClaimStockItem(ctx context.Context, userID, platformName string) (ClaimResult, error) {
	return l.Claims.ClaimStockItem(ctx, userID, platformName)
}

func (l *Ledger) RedeemCode(ctx context.Context, code, userID string) (RedemptionResult, error) {
	return l.Redemptions.RedeemCode(ctx, code, userID)
}

func (l *Ledger) CompleteReferralIfPending(ctx context.Context, userID string) (bool, error) {
	return l.Referrals.CompleteReferralIfPending(ctx, userID)
}

// Leaderboard returns at most limit top entries. A limit of zero or less
// uses the configured size.
func (l *Ledger) Leaderboard(ctx context.Context, kind domain.LeaderboardKind, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = l.leaderboardSize
	}
	return l.Accounts.Leaderboard(ctx, kind, limit)
}

// Snapshot is the aggregate state exported to gauges.
type Snapshot struct {
	Users       int64
	KeysTotal   int64
	KeysClaimed int64
	Stock       map[string]int64
}

// Snapshot counts users, keys and stock per platform.
func (l *Ledger) Snapshot(ctx context.Context) (Snapshot, error) {
	users, err := l.store.CountUsers(ctx)
	if err != nil {
		return Snapshot{}, database.Classify("snapshot users", err)
	}
	total, claimed, err := l.store.CountKeys(ctx)
	if err != nil {
		return Snapshot{}, database.Classify("snapshot keys", err)
	}
	platforms, err := l.store.ListPlatforms(ctx)
	if err != nil {
		return Snapshot{}, database.Classify("snapshot platforms", err)
	}

	stock := make(map[string]int64, len(platforms))
	for _, p := range platforms {
		stock[p.Name] = p.Stock
	}
	return Snapshot{Users: users, KeysTotal: total, KeysClaimed: claimed, Stock: stock}, nil
}
