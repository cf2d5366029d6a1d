package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/notify"
	"github.com/Proton-105/rewards-bot/internal/repository"
	"github.com/Proton-105/rewards-bot/internal/testutil"
	"github.com/Proton-105/rewards-bot/pkg/config"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string][]string)
	}
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

func (n *recordingNotifier) messages(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[userID]
}

type fixture struct {
	ledger   *Ledger
	store    *repository.Store
	notifier *recordingNotifier
}

// newFixture pins the claim picker to the first item.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixtureWith(t, &recordingNotifier{})
	f.ledger.Claims.WithPicker(func(int) int { return 0 })
	return f
}

// newFixtureWith keeps the random picker and delivers through n. Messages
// are recorded only when n is a *recordingNotifier.
func newFixtureWith(t *testing.T, n notify.Notifier) *fixture {
	t.Helper()
	store := repository.NewStore(testutil.NewSQLite(t))
	notifier, _ := n.(*recordingNotifier)
	if notifier == nil {
		notifier = &recordingNotifier{}
	}
	cfg := config.LedgerConfig{
		InitialPoints:     20,
		ClaimCost:         10,
		ReferralBonus:     5,
		NormalKeyPoints:   15,
		PremiumKeyPoints:  90,
		LeaderboardSize:   10,
		MaxKeysPerCommand: 50,
	}
	l := New(store, cfg, []int64{1000}, nil, n, testutil.DiscardLogger())
	return &fixture{ledger: l, store: store, notifier: notifier}
}

func (f *fixture) user(t *testing.T, id string, points int64) {
	t.Helper()
	_, _, err := f.store.CreateUser(context.Background(), repository.CreateUserParams{
		ID: id, Name: "user" + id, JoinDate: time.Now(), Points: points,
	})
	require.NoError(t, err)
}

func (f *fixture) platform(t *testing.T, name string, price int64, payloads ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ledger.Admin.AddPlatform(ctx, "1000", name, domain.PlatformAccount, price))
	items := make([]domain.StockItem, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, domain.StockItem{Kind: domain.ItemPlain, Payload: p})
	}
	_, err := f.ledger.Admin.AddStock(ctx, "1000", name, items)
	require.NoError(t, err)
}

func (f *fixture) points(t *testing.T, id string) int64 {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.Points
}

func (f *fixture) stock(t *testing.T, name string) int64 {
	t.Helper()
	p, err := f.store.GetPlatform(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func TestClaimStockItem_NetflixScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "1", 20)
	f.platform(t, "Netflix", 0, "a@x.com:pw1", "b@x.com:pw2")

	res, err := f.ledger.ClaimStockItem(ctx, "1", "Netflix")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com:pw1", res.Item.Payload)
	assert.Equal(t, int64(10), res.Price)
	assert.Equal(t, int64(10), res.NewBalance)

	res, err = f.ledger.ClaimStockItem(ctx, "1", "Netflix")
	require.NoError(t, err)
	assert.Equal(t, "b@x.com:pw2", res.Item.Payload)
	assert.Equal(t, int64(0), res.NewBalance)

	_, err = f.ledger.ClaimStockItem(ctx, "1", "Netflix")
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, int64(0), f.points(t, "1"))
}

func TestClaimStockItem_RandomPickDrainsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWith(t, &recordingNotifier{})
	f.user(t, "1", 100)

	payloads := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	f.platform(t, "Hulu", 0, payloads...)

	remaining := make(map[string]bool, len(payloads))
	for _, p := range payloads {
		remaining[p] = true
	}

	for i := range payloads {
		res, err := f.ledger.ClaimStockItem(ctx, "1", "Hulu")
		require.NoError(t, err)
		assert.True(t, remaining[res.Item.Payload], "item %q was not in stock", res.Item.Payload)
		delete(remaining, res.Item.Payload)

		assert.Equal(t, int64(100-10*(i+1)), res.NewBalance)
		assert.Equal(t, int64(len(remaining)), f.stock(t, "Hulu"))
	}
	assert.Empty(t, remaining)

	_, err := f.ledger.ClaimStockItem(ctx, "1", "Hulu")
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, int64(40), f.points(t, "1"))
}

func TestClaimStockItem_BalanceBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "exact", 10)
	f.user(t, "short", 9)
	f.platform(t, "Spotify", 0, "s1", "s2")

	res, err := f.ledger.ClaimStockItem(ctx, "exact", "Spotify")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NewBalance)

	_, err = f.ledger.ClaimStockItem(ctx, "short", "Spotify")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(9), f.points(t, "short"))
	assert.Equal(t, int64(1), f.stock(t, "Spotify"))
}

func TestClaimStockItem_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "1", 100)
	f.platform(t, "Empty", 0)

	_, err := f.ledger.ClaimStockItem(ctx, "1", "Empty")
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = f.ledger.ClaimStockItem(ctx, "1", "Missing")
	assert.ErrorIs(t, err, ErrPlatformNotFound)

	_, err = f.ledger.ClaimStockItem(ctx, "ghost", "Empty")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, f.ledger.Admin.BanUser(ctx, "1000", "1"))
	_, err = f.ledger.ClaimStockItem(ctx, "1", "Empty")
	assert.ErrorIs(t, err, ErrUserBanned)
	assert.Equal(t, int64(100), f.points(t, "1"))
}

func TestClaimStockItem_PlatformPriceOverridesClaimCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "1", 50)
	f.platform(t, "Disney", 25, "d1")

	require.NoError(t, f.ledger.Admin.SetClaimCost(ctx, "1000", 3))

	res, err := f.ledger.ClaimStockItem(ctx, "1", "Disney")
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.Price)
	assert.Equal(t, int64(25), res.NewBalance)
}

func TestClaimStockItem_ConcurrentClaimsConservePoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	const users = 8
	for i := 0; i < users; i++ {
		f.user(t, string(rune('a'+i)), 10)
	}
	f.platform(t, "Hulu", 0, "h1", "h2", "h3")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = map[string]bool{}
		wins    int
	)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := f.ledger.ClaimStockItem(ctx, id, "Hulu")
			if err != nil {
				assert.ErrorIs(t, err, ErrOutOfStock)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, claimed[res.Item.Payload], "item handed out twice")
			claimed[res.Item.Payload] = true
			wins++
		}(string(rune('a' + i)))
	}
	wg.Wait()

	assert.Equal(t, 3, wins)
	assert.Equal(t, int64(0), f.stock(t, "Hulu"))

	var total int64
	for i := 0; i < users; i++ {
		total += f.points(t, string(rune('a'+i)))
	}
	assert.Equal(t, int64(users*10-3*10), total)
}

func TestRedeemCode_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "2", 5)
	f.user(t, "3", 7)
	_, err := f.store.InsertKey(ctx, "NKEY-ABC123", domain.KeyNormal, 15, time.Now())
	require.NoError(t, err)

	res, err := f.ledger.RedeemCode(ctx, " nkey-abc123 ", "2")
	require.NoError(t, err)
	assert.Equal(t, "NKEY-ABC123", res.Code)
	assert.Equal(t, int64(15), res.Points)
	assert.Equal(t, int64(20), res.NewBalance)

	_, err = f.ledger.RedeemCode(ctx, "NKEY-ABC123", "3")
	assert.ErrorIs(t, err, ErrKeyAlreadyClaimed)
	assert.Equal(t, int64(7), f.points(t, "3"))

	_, err = f.ledger.RedeemCode(ctx, "NKEY-ABC123", "2")
	assert.ErrorIs(t, err, ErrKeyAlreadyClaimed)
	assert.Equal(t, int64(20), f.points(t, "2"))

	_, err = f.ledger.RedeemCode(ctx, "NKEY-NOPE00", "3")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	key, err := f.store.GetKey(ctx, "NKEY-ABC123")
	require.NoError(t, err)
	assert.True(t, key.Claimed)
	assert.Equal(t, "2", key.ClaimedBy)
	assert.NotNil(t, key.ClaimedAt)
}

func TestRedeemCode_ConcurrentAtMostOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.InsertKey(ctx, "PKEY-RACE000001", domain.KeyPremium, 90, time.Now())
	require.NoError(t, err)

	ids := []string{"1", "2", "3", "4", "5"}
	for _, id := range ids {
		f.user(t, id, 0)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = f.ledger.RedeemCode(ctx, "PKEY-RACE000001", id)
		}(id)
	}
	wg.Wait()

	var total int64
	for _, id := range ids {
		total += f.points(t, id)
	}
	assert.Equal(t, int64(90), total)
}

func TestCompleteReferral_GrantsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "100", 20)

	_, created, err := f.ledger.Accounts.EnsureUser(ctx, "200", "bob", "100")
	require.NoError(t, err)
	require.True(t, created)

	granted, err := f.ledger.CompleteReferralIfPending(ctx, "200")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = f.ledger.CompleteReferralIfPending(ctx, "200")
	require.NoError(t, err)
	assert.False(t, granted)

	referrer, err := f.store.GetUser(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, int64(25), referrer.Points)
	assert.Equal(t, int64(1), referrer.Referrals)

	referred, err := f.store.GetUser(ctx, "200")
	require.NoError(t, err)
	assert.True(t, referred.Verified)
	assert.Empty(t, referred.PendingReferrer)

	require.Len(t, f.notifier.messages("100"), 1)
	assert.Contains(t, f.notifier.messages("100")[0], "bob")
}

func TestCompleteReferral_MissingReferrerIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.ledger.Accounts.EnsureUser(ctx, "200", "bob", "999")
	require.NoError(t, err)

	granted, err := f.ledger.CompleteReferralIfPending(ctx, "200")
	require.NoError(t, err)
	assert.False(t, granted)

	n, err := f.store.CountReferrals(ctx, "999")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.notifier.messages("999"))
}

func TestCompleteReferral_ExistingReferralGrantsNoBonus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "100", 20)

	_, _, err := f.ledger.Accounts.EnsureUser(ctx, "200", "bob", "100")
	require.NoError(t, err)
	inserted, err := f.store.InsertReferral(ctx, "100", "200", time.Now())
	require.NoError(t, err)
	require.True(t, inserted)

	granted, err := f.ledger.CompleteReferralIfPending(ctx, "200")
	require.NoError(t, err)
	assert.False(t, granted)

	assert.Equal(t, int64(20), f.points(t, "100"))
	referred, err := f.store.GetUser(ctx, "200")
	require.NoError(t, err)
	assert.True(t, referred.Verified)
	assert.Empty(t, referred.PendingReferrer)
	assert.Empty(t, f.notifier.messages("100"))
}

func TestCompleteReferral_NotificationFailureKeepsBonus(t *testing.T) {
	ctx := context.Background()
	var attempts int
	f := newFixtureWith(t, notify.Func(func(context.Context, string, string) error {
		attempts++
		return errors.New("chat not found")
	}))
	f.user(t, "100", 20)

	_, _, err := f.ledger.Accounts.EnsureUser(ctx, "200", "bob", "100")
	require.NoError(t, err)

	granted, err := f.ledger.CompleteReferralIfPending(ctx, "200")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, 1, attempts)

	referrer, err := f.store.GetUser(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, int64(25), referrer.Points)
	assert.Equal(t, int64(1), referrer.Referrals)
}

func TestLeaderboard_Limit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "1", 30)
	f.user(t, "2", 50)
	f.user(t, "3", 10)

	board, err := f.ledger.Leaderboard(ctx, domain.LeaderboardPoints, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "2", board[0].UserID)
	assert.Equal(t, "1", board[1].UserID)

	board, err = f.ledger.Leaderboard(ctx, domain.LeaderboardPoints, 0)
	require.NoError(t, err)
	assert.Len(t, board, 3)
}

func TestEnsureUser_DropsSelfReferral(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, created, err := f.ledger.Accounts.EnsureUser(ctx, "7", "eve", "7")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, u.PendingReferrer)
	assert.Equal(t, int64(20), u.Points)

	granted, err := f.ledger.CompleteReferralIfPending(ctx, "7")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestCompleteReferral_UnknownUserIsNoop(t *testing.T) {
	granted, err := newFixture(t).ledger.CompleteReferralIfPending(context.Background(), "404")
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestAccounts_IsAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.ledger.Accounts.IsAdmin(ctx, "1000")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.ledger.Admin.AddAdmin(ctx, "1000", "55", "mod", ""))
	ok, err = f.ledger.Accounts.IsAdmin(ctx, "55")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, f.notifier.messages("55"))

	banned, err := f.ledger.Admin.ToggleAdminBan(ctx, "1000", "55")
	require.NoError(t, err)
	assert.True(t, banned)
	ok, err = f.ledger.Accounts.IsAdmin(ctx, "55")
	require.NoError(t, err)
	assert.False(t, ok)
}
