package ledger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Proton-105/rewards-bot/internal/audit"
	"github.com/Proton-105/rewards-bot/internal/database"
	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/repository"
)

// ReferralPrefix marks a referral payload in /start deep links.
const ReferralPrefix = "ref_"

// ParseReferralPayload extracts the referrer id from a "ref_<id>" start
// payload. It returns "" for anything else.
func ParseReferralPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, ReferralPrefix) {
		return ""
	}
	id := strings.TrimPrefix(payload, ReferralPrefix)
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return ""
	}
	return id
}

// ReferralLink builds the deep link a user shares to refer others.
func ReferralLink(botUsername, userID string) string {
	return "https://t.me/" + botUsername + "?start=" + ReferralPrefix + userID
}

// Accounts registers users and answers identity and privilege questions.
type Accounts struct {
	store         *repository.Store
	owners        map[string]struct{}
	initialPoints int64
	sink          audit.Sink
	now           func() time.Time
	log           *slog.Logger
}

func NewAccounts(store *repository.Store, owners []int64, initialPoints int64, sink audit.Sink, log *slog.Logger) *Accounts {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	set := make(map[string]struct{}, len(owners))
	for _, id := range owners {
		set[strconv.FormatInt(id, 10)] = struct{}{}
	}
	return &Accounts{
		store:         store,
		owners:        set,
		initialPoints: initialPoints,
		sink:          sink,
		now:           time.Now,
		log:           log.With(slog.String("component", "accounts")),
	}
}

// EnsureUser registers the user on first contact. The pending referrer is
// only recorded for new users and never for self referrals. Existing users
// are returned unchanged.
func (a *Accounts) EnsureUser(ctx context.Context, id, name, referrerID string) (*domain.User, bool, error) {
	if referrerID == id {
		referrerID = ""
	}

	user, created, err := a.store.CreateUser(ctx, repository.CreateUserParams{
		ID:              id,
		Name:            name,
		JoinDate:        a.now(),
		Points:          a.initialPoints,
		PendingReferrer: referrerID,
	})
	if err != nil {
		return nil, false, database.Classify("ensure user", err)
	}

	if created {
		msg := "New user registered."
		if referrerID != "" {
			msg = "New user registered via referral from " + referrerID + "."
		}
		a.sink.LogEvent(ctx, audit.KindStart, msg, &audit.Actor{ID: id, Username: name})
	}
	return user, created, nil
}

// User returns ErrUserNotFound for unknown ids.
func (a *Accounts) User(ctx context.Context, id string) (*domain.User, error) {
	user, err := a.store.GetUser(ctx, id)
	if err != nil {
		return nil, database.Classify("get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (a *Accounts) IsOwner(id string) bool {
	_, ok := a.owners[id]
	return ok
}

// IsAdmin is true for owners and for admins that are not banned.
func (a *Accounts) IsAdmin(ctx context.Context, id string) (bool, error) {
	if a.IsOwner(id) {
		return true, nil
	}
	admin, err := a.store.GetAdmin(ctx, id)
	if err != nil {
		return false, database.Classify("get admin", err)
	}
	return admin != nil && !admin.Banned, nil
}

// OwnerIDs lists the configured owners.
func (a *Accounts) OwnerIDs() []string {
	ids := make([]string, 0, len(a.owners))
	for id := range a.owners {
		ids = append(ids, id)
	}
	return ids
}

func (a *Accounts) Leaderboard(ctx context.Context, kind domain.LeaderboardKind, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	var (
		entries []domain.LeaderboardEntry
		err     error
	)
	switch kind {
	case domain.LeaderboardReferrals:
		entries, err = a.store.TopByReferrals(ctx, limit)
	default:
		entries, err = a.store.TopByPoints(ctx, limit)
	}
	if err != nil {
		return nil, database.Classify("leaderboard", err)
	}
	return entries, nil
}
