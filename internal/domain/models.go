// Package domain holds the ledger entities shared by storage, engines and
// the bot layer.
package domain

import "time"

// DefaultInitialPoints is the balance of a freshly registered user.
const DefaultInitialPoints int64 = 20

type User struct {
	ID              string
	Name            string
	JoinDate        time.Time
	Points          int64
	Referrals       int64
	Banned          bool
	PendingReferrer string
	Verified        bool
}

type PlatformKind string

const (
	PlatformAccount PlatformKind = "account"
	PlatformCookie  PlatformKind = "cookie"
)

func (k PlatformKind) Valid() bool {
	return k == PlatformAccount || k == PlatformCookie
}

type Platform struct {
	ID   int64
	Name string
	// Price of zero means the global claim cost applies.
	Price int64
	Kind  PlatformKind
	Stock int64
}

type ItemKind string

const (
	ItemPlain  ItemKind = "plain"
	ItemCookie ItemKind = "cookie"
)

// StockItem is one claimable unit. Cookie records carry a CookieType next
// to their content; plain items only have a Payload.
type StockItem struct {
	ID         int64
	PlatformID int64
	Kind       ItemKind
	CookieType string
	Payload    string
}

type KeyKind string

const (
	KeyNormal  KeyKind = "normal"
	KeyPremium KeyKind = "premium"
)

func (k KeyKind) Valid() bool {
	return k == KeyNormal || k == KeyPremium
}

// Prefix is the code prefix used when generating keys of this kind.
func (k KeyKind) Prefix() string {
	if k == KeyPremium {
		return "PKEY-"
	}
	return "NKEY-"
}

type RedemptionKey struct {
	Code      string
	Kind      KeyKind
	Points    int64
	Claimed   bool
	ClaimedBy string
	ClaimedAt *time.Time
	CreatedAt time.Time
}

type Referral struct {
	ReferrerID string
	ReferredID string
	CreatedAt  time.Time
}

type Admin struct {
	UserID string
	Name   string
	Role   string
	Banned bool
}

type Channel struct {
	ID   int64
	Link string
}

type ReportStatus string

const (
	ReportOpen   ReportStatus = "open"
	ReportClosed ReportStatus = "closed"
)

type Report struct {
	ID        int64
	UserID    string
	Body      string
	Status    ReportStatus
	Claimed   bool
	ClaimedBy string
	CreatedAt time.Time
}

type AdminLogEntry struct {
	ID        int64
	AdminID   string
	Action    string
	CreatedAt time.Time
}

type LeaderboardKind string

const (
	LeaderboardPoints    LeaderboardKind = "points"
	LeaderboardReferrals LeaderboardKind = "referrals"
)

type LeaderboardEntry struct {
	UserID string
	Name   string
	Metric int64
}
