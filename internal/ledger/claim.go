package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/domain"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// Picker returns an index in [0, n).
type Picker func(n int) int

type ClaimResult struct {
	Item       domain.StockItem
	Platform   string
	Price      int64
	NewBalance int64
}

// ClaimEngine trades points for one stock item.
type ClaimEngine struct {
	store    *repository.Store
	registry *Registry
	sink     audit.Sink
	pick     Picker
	log      *slog.Logger
}

func NewClaimEngine(store *repository.Store, registry *Registry, sink audit.Sink, log *slog.Logger) *ClaimEngine {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &ClaimEngine{
		store:    store,
		registry: registry,
		sink:     sink,
		pick:     rand.IntN,
		log:      log.With(slog.String("component", "claim_engine")),
	}
}

// WithPicker replaces the uniform random item selection.
func (e *ClaimEngine) WithPicker(p Picker) *ClaimEngine {
	e.pick = p
	return e
}

// ClaimStockItem removes one random item from the platform and debits its
// price from the user in a single transaction. On any error nothing is
// changed. An empty platform reports ErrOutOfStock before the balance is
// checked, so a user with too few points still learns the stock ran out.
func (e *ClaimEngine) ClaimStockItem(ctx context.Context, userID, platformName string) (ClaimResult, error) {
	var (
		res   ClaimResult
		actor = &audit.Actor{ID: userID}
	)

	err := e.store.WithTx(ctx, "claim stock item", func(q *repository.Queries) error {
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

		platform, err := q.GetPlatform(ctx, platformName)
		if err != nil {
			return err
		}
		if platform == nil {
			return ErrPlatformNotFound
		}

		price := platform.Price
		if price <= 0 {
			if price, err = e.registry.claimCostTx(ctx, q); err != nil {
				return err
			}
		}

		items, err := q.ListStock(ctx, platform.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrOutOfStock
		}
		if user.Points < price {
			return ErrInsufficientBalance
		}

		item := items[e.pick(len(items))]
		removed, err := q.DeleteStockItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.NewPersistenceError("claim stock item",
				fmt.Errorf("stock item %d disappeared", item.ID), true)
		}

		balance, debited, err := q.DebitPoints(ctx, user.ID, price)
		if err != nil {
			return err
		}
		if !debited {
			return ErrInsufficientBalance
		}

		res = ClaimResult{Item: item, Platform: platform.Name, Price: price, NewBalance: balance}
		return nil
	})

	metrics.RecordLedgerOperation("claim", resultLabel(err))
	if err != nil {
		if apperrors.IsUserFacing(err) {
			e.sink.LogEvent(ctx, audit.KindClaimRejected,
				fmt.Sprintf("Claim from %s rejected: %v", platformName, err), actor)
		}
		return ClaimResult{}, err
	}

	metrics.RecordPointsDebited("claim", res.Price)
	e.sink.LogEvent(ctx, audit.KindClaim,
		fmt.Sprintf("User %s claimed an account from %s. New balance: %d pts.", userID, res.Platform, res.NewBalance), actor)
	return res, nil
}
