package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/rewards-bot/internal/domain"
	"github.com/Proton-105/rewards-bot/internal/testutil"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.NewSQLite(t))
}

func TestCreateUser_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	u, created, err := s.CreateUser(ctx, CreateUserParams{ID: "1", Name: "alice", JoinDate: joined, Points: 20, PendingReferrer: "9"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(20), u.Points)
	assert.Equal(t, "9", u.PendingReferrer)
	assert.True(t, joined.Equal(u.JoinDate))

	again, created, err := s.CreateUser(ctx, CreateUserParams{ID: "1", Name: "mallory", JoinDate: time.Now(), Points: 999})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice", again.Name)
	assert.Equal(t, int64(20), again.Points)
}

func TestGetUser_MissReturnsNil(t *testing.T) {
	u, err := newStore(t).GetUser(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDebitPoints_RespectsBalance(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _, err := s.CreateUser(ctx, CreateUserParams{ID: "1", JoinDate: time.Now(), Points: 10})
	require.NoError(t, err)

	_, ok, err := s.DebitPoints(ctx, "1", 11)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, ok, err := s.DebitPoints(ctx, "1", 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), balance)
}

func TestPlatformAndStockLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	created, err := s.CreatePlatform(ctx, "Netflix", domain.PlatformAccount, 10)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreatePlatform(ctx, "Netflix", domain.PlatformAccount, 10)
	require.NoError(t, err)
	assert.False(t, created)

	p, err := s.GetPlatform(ctx, "Netflix")
	require.NoError(t, err)
	require.NotNil(t, p)

	n, err := s.AppendStock(ctx, p.ID, []domain.StockItem{{Payload: "a"}, {Payload: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := s.RenamePlatform(ctx, "Netflix", "Netflix HD")
	require.NoError(t, err)
	assert.True(t, ok)

	renamed, err := s.GetPlatform(ctx, "Netflix HD")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, int64(2), renamed.Stock)
	assert.Equal(t, p.ID, renamed.ID)

	items, err := s.ListStock(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Payload)
	assert.Equal(t, domain.ItemPlain, items[0].Kind)

	ok, err = s.DeletePlatform(ctx, "Netflix HD")
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := s.CountStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClaimKey_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now()

	ok, err := s.InsertKey(ctx, "NKEY-ABC123", domain.KeyNormal, 15, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimKey(ctx, "NKEY-ABC123", "2", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimKey(ctx, "NKEY-ABC123", "3", now)
	require.NoError(t, err)
	assert.False(t, ok)

	k, err := s.GetKey(ctx, "NKEY-ABC123")
	require.NoError(t, err)
	require.NotNil(t, k)
	assert.True(t, k.Claimed)
	assert.Equal(t, "2", k.ClaimedBy)
	assert.NotNil(t, k.ClaimedAt)

	total, claimed, err := s.CountKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), claimed)
}

func TestInsertReferral_UniquePerReferred(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	ok, err := s.InsertReferral(ctx, "1", "2", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertReferral(ctx, "3", "2", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfigUpsert(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, found, err := s.GetConfig(ctx, "referral_bonus")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetConfig(ctx, "referral_bonus", "5"))
	require.NoError(t, s.SetConfig(ctx, "referral_bonus", "7"))

	value, found, err := s.GetConfig(ctx, "referral_bonus")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "7", value)
}

func TestLeaderboards(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now()

	for _, p := range []CreateUserParams{
		{ID: "1", Name: "a", JoinDate: now, Points: 50},
		{ID: "2", Name: "b", JoinDate: now, Points: 70},
		{ID: "3", Name: "c", JoinDate: now, Points: 10},
	} {
		_, _, err := s.CreateUser(ctx, p)
		require.NoError(t, err)
	}
	_, err := s.InsertReferral(ctx, "3", "1", now)
	require.NoError(t, err)
	_, err = s.InsertReferral(ctx, "3", "2", now)
	require.NoError(t, err)
	_, err = s.InsertReferral(ctx, "1", "4", now)
	require.NoError(t, err)

	byPoints, err := s.TopByPoints(ctx, 2)
	require.NoError(t, err)
	require.Len(t, byPoints, 2)
	assert.Equal(t, "2", byPoints[0].UserID)
	assert.Equal(t, int64(70), byPoints[0].Metric)
	assert.Equal(t, "1", byPoints[1].UserID)

	byReferrals, err := s.TopByReferrals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, byReferrals, 2)
	assert.Equal(t, "3", byReferrals[0].UserID)
	assert.Equal(t, int64(2), byReferrals[0].Metric)
	assert.Equal(t, "1", byReferrals[1].UserID)
}

func TestReportsClaimAndClose(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.InsertReport(ctx, "5", "broken account", time.Now())
	require.NoError(t, err)

	ok, err := s.ClaimReport(ctx, id, "100")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimReport(ctx, id, "101")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CloseReport(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.GetReport(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, domain.ReportClosed, r.Status)
	assert.Equal(t, "100", r.ClaimedBy)
}

func TestAdminsUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.UpsertAdmin(ctx, domain.Admin{UserID: "7", Name: "old", Role: "admin"}))
	ok, err := s.SetAdminBanned(ctx, "7", true)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.UpsertAdmin(ctx, domain.Admin{UserID: "7", Name: "new", Role: "moderator"}))
	a, err := s.GetAdmin(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "new", a.Name)
	assert.False(t, a.Banned)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _, err := s.CreateUser(ctx, CreateUserParams{ID: "1", JoinDate: time.Now(), Points: 20})
	require.NoError(t, err)

	boom := assert.AnError
	err = s.WithTx(ctx, "test", func(q *Queries) error {
		if _, err := q.SetPoints(ctx, "1", 0); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)

	u, err := s.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), u.Points)
}
