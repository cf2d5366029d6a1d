package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/database"
	"github.com/Proton-105/rewards-bot/internal/domain"
	apperrors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/pkg/metrics"
)

// KeyDefaults are the point values used when /gen omits them.
type KeyDefaults struct {
	Normal    int64
	Premium   int64
	MaxPerRun int
}

func (d KeyDefaults) points(kind domain.KeyKind) int64 {
	if kind == domain.KeyPremium {
		return d.Premium
	}
	return d.Normal
}

// Admin runs administrative mutations. Each one commits together with an
// admin_logs row; stock and balance changes share the engines' transaction
// rules.
type Admin struct {
	store    *repository.Store
	registry *Registry
	accounts *Accounts
	keys     KeyDefaults
	sink     audit.Sink
	notifier notify.Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewAdmin(store *repository.Store, registry *Registry, accounts *Accounts, keys KeyDefaults, sink audit.Sink, notifier notify.Notifier, log *slog.Logger) *Admin {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	if keys.MaxPerRun <= 0 {
		keys.MaxPerRun = 100
	}
	return &Admin{
		store:    store,
		registry: registry,
		accounts: accounts,
		keys:     keys,
		sink:     sink,
		notifier: notify.NewBestEffort(notifier, log),
		now:      time.Now,
		log:      log.With(slog.String("component", "admin")),
	}
}

// mutate runs fn and the admin log insert in one transaction, then emits
// the audit event.
func (a *Admin) mutate(ctx context.Context, actorID, action string, fn func(q *repository.Queries) error) error {
	err := a.store.WithTx(ctx, action, func(q *repository.Queries) error {
		if err := fn(q); err != nil {
			return err
		}
		return q.InsertAdminLog(ctx, actorID, action, a.now())
	})
	metrics.RecordLedgerOperation("admin", resultLabel(err))
	if err != nil {
		return err
	}
	a.sink.LogEvent(ctx, audit.KindAdmin, action, &audit.Actor{ID: actorID})
	return nil
}

// MaxPlatformName keeps platform names short enough for callback data.
const MaxPlatformName = 40

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("name must not be empty")
	}
	if len(name) > MaxPlatformName {
		return "", apperrors.NewValidationError(fmt.Sprintf("name must be at most %d bytes", MaxPlatformName))
	}
	return name, nil
}

func (a *Admin) AddPlatform(ctx context.Context, actorID, name string, kind domain.PlatformKind, price int64) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return apperrors.NewValidationError("platform kind must be account or cookie")
	}
	if price < 0 {
		return apperrors.NewValidationError("price must not be negative")
	}

	return a.mutate(ctx, actorID, fmt.Sprintf("Added %s platform %q", kind, name), func(q *repository.Queries) error {
		created, err := q.CreatePlatform(ctx, name, kind, price)
		if err != nil {
			return err
		}
		if !created {
			return ErrPlatformExists
		}
		return nil
	})
}

func (a *Admin) RemovePlatform(ctx context.Context, actorID, name string) error {
	return a.mutate(ctx, actorID, fmt.Sprintf("Removed platform %q", name), func(q *repository.Queries) error {
		removed, err := q.DeletePlatform(ctx, name)
		if err != nil {
			return err
		}
		if !removed {
			return ErrPlatformNotFound
		}
		return nil
	})
}

func (a *Admin) RenamePlatform(ctx context.Context, actorID, oldName, newName string) error {
	newName, err := cleanName(newName)
	if err != nil {
		return err
	}

	return a.mutate(ctx, actorID, fmt.Sprintf("Renamed platform %q to %q", oldName, newName), func(q *repository.Queries) error {
		existing, err := q.GetPlatform(ctx, newName)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrPlatformExists
		}
		renamed, err := q.RenamePlatform(ctx, oldName, newName)
		if err != nil {
			return err
		}
		if !renamed {
			return ErrPlatformNotFound
		}
		return nil
	})
}

// SetPrice sets a per-platform price. Zero means the global claim cost.
func (a *Admin) SetPrice(ctx context.Context, actorID, name string, price int64) error {
	if price < 0 {
		return apperrors.NewValidationError("price must not be negative")
	}
	return a.mutate(ctx, actorID, fmt.Sprintf("Set price of %q to %d", name, price), func(q *repository.Queries) error {
		updated, err := q.SetPrice(ctx, name, price)
		if err != nil {
			return err
		}
		if !updated {
			return ErrPlatformNotFound
		}
		return nil
	})
}

// AddStock appends items to the platform's stock.
func (a *Admin) AddStock(ctx context.Context, actorID, name string, items []domain.StockItem) (int, error) {
	return a.writeStock(ctx, actorID, name, items, false)
}

// ReplaceStock discards the current stock and stores items instead.
func (a *Admin) ReplaceStock(ctx context.Context, actorID, name string, items []domain.StockItem) (int, error) {
	return a.writeStock(ctx, actorID, name, items, true)
}

func (a *Admin) writeStock(ctx context.Context, actorID, name string, items []domain.StockItem, replace bool) (int, error) {
	verb := "Added"
	if replace {
		verb = "Replaced stock with"
	}

	var total int64
	err := a.mutate(ctx, actorID, fmt.Sprintf("%s %d items on %q", verb, len(items), name), func(q *repository.Queries) error {
		platform, err := q.GetPlatform(ctx, name)
		if err != nil {
			return err
		}
		if platform == nil {
			return ErrPlatformNotFound
		}
		if replace {
			if _, err := q.ClearStock(ctx, platform.ID); err != nil {
				return err
			}
		}
		if _, err := q.AppendStock(ctx, platform.ID, items); err != nil {
			return err
		}
		total, err = q.CountStock(ctx, platform.ID)
		return err
	})
	if err != nil {
		return 0, err
	}

	a.sink.LogEvent(ctx, audit.KindStock,
		fmt.Sprintf("Platform %q now has %d items after %d were uploaded.", name, total, len(items)), &audit.Actor{ID: actorID})
	return len(items), nil
}

func (a *Admin) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	platforms, err := a.store.ListPlatforms(ctx)
	return platforms, database.Classify("list platforms", err)
}

// Platform returns the platform with its effective price resolved.
func (a *Admin) Platform(ctx context.Context, name string) (*domain.Platform, int64, error) {
	platform, err := a.store.GetPlatform(ctx, name)
	if err != nil {
		return nil, 0, database.Classify("get platform", err)
	}
	if platform == nil {
		return nil, 0, ErrPlatformNotFound
	}

	price := platform.Price
	if price <= 0 {
		if price, err = a.registry.ClaimCost(ctx); err != nil {
			return nil, 0, err
		}
	}
	return platform, price, nil
}

func (a *Admin) AddChannel(ctx context.Context, actorID, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return apperrors.NewValidationError("channel link must not be empty")
	}
	return a.mutate(ctx, actorID, fmt.Sprintf("Added required channel %s", link), func(q *repository.Queries) error {
		added, err := q.AddChannel(ctx, link)
		if err != nil {
			return err
		}
		if !added {
			return ErrChannelExists
		}
		return nil
	})
}

func (a *Admin) RemoveChannel(ctx context.Context, actorID, link string) error {
	return a.mutate(ctx, actorID, fmt.Sprintf("Removed required channel %s", link), func(q *repository.Queries) error {
		removed, err := q.RemoveChannel(ctx, link)
		if err != nil {
			return err
		}
		if !removed {
			return ErrChannelNotFound
		}
		return nil
	})
}

func (a *Admin) Channels(ctx context.Context) ([]domain.Channel, error) {
	channels, err := a.store.ListChannels(ctx)
	return channels, database.Classify("list channels", err)
}

// AddAdmin inserts or replaces the admin record and greets the new admin.
func (a *Admin) AddAdmin(ctx context.Context, actorID, userID, name, role string) error {
	if role == "" {
		role = "admin"
	}
	err := a.mutate(ctx, actorID, fmt.Sprintf("Added admin %s as %s", userID, role), func(q *repository.Queries) error {
		return q.UpsertAdmin(ctx, domain.Admin{UserID: userID, Name: name, Role: role})
	})
	if err != nil {
		return err
	}

	_ = a.notifier.Notify(ctx, userID, fmt.Sprintf("🛡 You have been granted %s access. Use /admin to open the panel.", role))
	return nil
}

func (a *Admin) RemoveAdmin(ctx context.Context, actorID, userID string) error {
	return a.mutate(ctx, actorID, fmt.Sprintf("Removed admin %s", userID), func(q *repository.Queries) error {
		removed, err := q.DeleteAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrAdminNotFound
		}
		return nil
	})
}

// ToggleAdminBan flips the admin's ban flag and returns the new value.
func (a *Admin) ToggleAdminBan(ctx context.Context, actorID, userID string) (bool, error) {
	var banned bool
	err := a.mutate(ctx, actorID, fmt.Sprintf("Toggled ban of admin %s", userID), func(q *repository.Queries) error {
		admin, err := q.GetAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrAdminNotFound
		}
		banned = !admin.Banned
		_, err = q.SetAdminBanned(ctx, userID, banned)
		return err
	})
	return banned, err
}

func (a *Admin) Admins(ctx context.Context) ([]domain.Admin, error) {
	admins, err := a.store.ListAdmins(ctx)
	return admins, database.Classify("list admins", err)
}

func (a *Admin) BanUser(ctx context.Context, actorID, userID string) error {
	return a.setBanned(ctx, actorID, userID, true)
}

func (a *Admin) UnbanUser(ctx context.Context, actorID, userID string) error {
	return a.setBanned(ctx, actorID, userID, false)
}

func (a *Admin) setBanned(ctx context.Context, actorID, userID string, banned bool) error {
	verb := "Unbanned"
	if banned {
		verb = "Banned"
	}
	return a.mutate(ctx, actorID, fmt.Sprintf("%s user %s", verb, userID), func(q *repository.Queries) error {
		updated, err := q.SetBanned(ctx, userID, banned)
		if err != nil {
			return err
		}
		if !updated {
			return ErrUserNotFound
		}
		return nil
	})
}

// Users returns one page of users and the total count.
func (a *Admin) Users(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	users, err := a.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, database.Classify("list users", err)
	}
	total, err := a.store.CountUsers(ctx)
	if err != nil {
		return nil, 0, database.Classify("count users", err)
	}
	return users, total, nil
}

// LendPoints credits amount to the user and forwards the optional message.
func (a *Admin) LendPoints(ctx context.Context, actorID, userID string, amount int64, message string) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.NewValidationError("amount must be positive")
	}

	var balance int64
	err := a.mutate(ctx, actorID, fmt.Sprintf("Lent %d pts to %s", amount, userID), func(q *repository.Queries) error {
		user, err := q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		balance, err = q.AddPoints(ctx, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordPointsCredited("lend", amount)
	text := fmt.Sprintf("💰 You received %d pts. New balance: %d pts.", amount, balance)
	if message = strings.TrimSpace(message); message != "" {
		text += "\n\n" + message
	}
	_ = a.notifier.Notify(ctx, userID, text)
	return balance, nil
}

// GenerateKeys issues qty new keys. points of zero uses the kind default.
func (a *Admin) GenerateKeys(ctx context.Context, actorID string, kind domain.KeyKind, qty int, points int64) ([]string, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("key kind must be normal or premium")
	}
	if qty <= 0 || qty > a.keys.MaxPerRun {
		return nil, apperrors.NewValidationError(fmt.Sprintf("quantity must be between 1 and %d", a.keys.MaxPerRun))
	}
	if points < 0 {
		return nil, apperrors.NewValidationError("points must not be negative")
	}
	if points == 0 {
		points = a.keys.points(kind)
	}

	var codes []string
	err := a.mutate(ctx, actorID, fmt.Sprintf("Generated %d %s keys worth %d pts", qty, kind, points), func(q *repository.Queries) error {
		codes = codes[:0]
		now := a.now()
		for len(codes) < qty {
			code, err := NewKeyCode(kind)
			if err != nil {
				return err
			}
			inserted, err := q.InsertKey(ctx, code, kind, points, now)
			if err != nil {
				return err
			}
			if inserted {
				codes = append(codes, code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (a *Admin) SetClaimCost(ctx context.Context, actorID string, value int64) error {
	if value < 0 {
		return apperrors.NewValidationError("claim cost must not be negative")
	}
	return a.mutate(ctx, actorID, fmt.Sprintf("Set account claim cost to %d", value), func(q *repository.Queries) error {
		return a.registry.setInt(ctx, q, KeyClaimCost, value)
	})
}

func (a *Admin) SetReferralBonus(ctx context.Context, actorID string, value int64) error {
	if value < 0 {
		return apperrors.NewValidationError("referral bonus must not be negative")
	}
	return a.mutate(ctx, actorID, fmt.Sprintf("Set referral bonus to %d", value), func(q *repository.Queries) error {
		return a.registry.setInt(ctx, q, KeyReferralBonus, value)
	})
}

// UserIDs lists broadcast recipients.
func (a *Admin) UserIDs(ctx context.Context) ([]string, error) {
	ids, err := a.store.ListActiveUserIDs(ctx)
	return ids, database.Classify("list user ids", err)
}

// SubmitReview stores a review and forwards it to the owners.
func (a *Admin) SubmitReview(ctx context.Context, userID, username, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return apperrors.NewValidationError("review must not be empty")
	}
	if _, err := a.store.InsertReview(ctx, userID, body, a.now()); err != nil {
		return database.Classify("submit review", err)
	}

	actor := &audit.Actor{ID: userID, Username: username}
	a.sink.LogEvent(ctx, audit.KindReview, "Review submitted.", actor)
	a.notifyOwners(ctx, audit.Format(audit.KindReview, body, actor))
	return nil
}

// SubmitReport stores a report and forwards it to the owners.
func (a *Admin) SubmitReport(ctx context.Context, userID, username, body string) (int64, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return 0, apperrors.NewValidationError("report must not be empty")
	}
	id, err := a.store.InsertReport(ctx, userID, body, a.now())
	if err != nil {
		return 0, database.Classify("submit report", err)
	}

	actor := &audit.Actor{ID: userID, Username: username}
	a.sink.LogEvent(ctx, audit.KindReport, fmt.Sprintf("Report #%d submitted.", id), actor)
	a.notifyOwners(ctx, audit.Format(audit.KindReport, fmt.Sprintf("#%d %s", id, body), actor))
	return id, nil
}

func (a *Admin) ClaimReport(ctx context.Context, actorID string, id int64) error {
	return a.mutate(ctx, actorID, fmt.Sprintf("Claimed report #%d", id), func(q *repository.Queries) error {
		report, err := q.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if report == nil {
			return ErrReportNotFound
		}
		claimed, err := q.ClaimReport(ctx, id, actorID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrReportClaimed
		}
		return nil
	})
}

// CloseReport closes the report and tells the reporter.
func (a *Admin) CloseReport(ctx context.Context, actorID string, id int64) error {
	var reporter string
	err := a.mutate(ctx, actorID, fmt.Sprintf("Closed report #%d", id), func(q *repository.Queries) error {
		report, err := q.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if report == nil {
			return ErrReportNotFound
		}
		closed, err := q.CloseReport(ctx, id)
		if err != nil {
			return err
		}
		if !closed {
			return ErrReportClaimed
		}
		reporter = report.UserID
		return nil
	})
	if err != nil {
		return err
	}

	_ = a.notifier.Notify(ctx, reporter, fmt.Sprintf("✅ Your report #%d has been resolved.", id))
	return nil
}

func (a *Admin) AdminLog(ctx context.Context, limit int) ([]domain.AdminLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := a.store.ListAdminLog(ctx, limit)
	return entries, database.Classify("admin log", err)
}

func (a *Admin) notifyOwners(ctx context.Context, text string) {
	if a.accounts == nil {
		return
	}
	for _, id := range a.accounts.OwnerIDs() {
		_ = a.notifier.Notify(ctx, id, text)
	}
}
