// Package verification decides whether a user has joined every required
// channel.
package verification

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

// DefaultTTL is how long a positive membership check is trusted.
const DefaultTTL = 10 * time.Minute

// Membership is the part of *telebot.Bot used for checks.
type Membership interface {
	ChatByUsername(name string) (*tele.Chat, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// Admins identifies users exempt from verification.
type Admins interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// Channels lists the channels stored through the admin panel.
type Channels interface {
	Channels(ctx context.Context) ([]domain.Channel, error)
}

// Result of a check. Missing holds the channels the user has not joined.
type Result struct {
	Verified bool
	Missing  []string
}

type Verifier struct {
	members  Membership
	admins   Admins
	channels Channels
	static   []string
	cache    *Cache
	ttl      time.Duration
	log      *slog.Logger
}

func NewVerifier(members Membership, admins Admins, channels Channels, static []string, cache *Cache, ttl time.Duration, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Verifier{
		members:  members,
		admins:   admins,
		channels: channels,
		static:   static,
		cache:    cache,
		ttl:      ttl,
		log:      log.With(slog.String("component", "verification")),
	}
}

// RequiredChannels merges configured and stored channels without duplicates.
func (v *Verifier) RequiredChannels(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(v.static))

	add := func(link string) {
		link = strings.TrimSpace(link)
		if link == "" {
			return
		}
		key := strings.ToLower(link)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, link)
	}

	for _, link := range v.static {
		add(link)
	}

	if v.channels != nil {
		stored, err := v.channels.Channels(ctx)
		if err != nil {
			return nil, err
		}
		for _, ch := range stored {
			add(ch.Link)
		}
	}

	return out, nil
}

// Verify checks membership of userID in every required channel. Admins and
// owners always pass. Positive results are cached.
func (v *Verifier) Verify(ctx context.Context, userID int64) (Result, error) {
	if v.admins != nil {
		isAdmin, err := v.admins.IsAdmin(ctx, strconv.FormatInt(userID, 10))
		if err != nil {
			return Result{}, err
		}
		if isAdmin {
			return Result{Verified: true}, nil
		}
	}

	if cached, err := v.cache.Verified(ctx, userID); err != nil {
		v.log.Warn("membership cache unavailable", slog.Any("error", err))
	} else if cached {
		return Result{Verified: true}, nil
	}

	channels, err := v.RequiredChannels(ctx)
	if err != nil {
		return Result{}, err
	}

	var missing []string
	for _, link := range channels {
		if !v.isMember(link, userID) {
			missing = append(missing, link)
		}
	}

	if len(missing) > 0 {
		return Result{Missing: missing}, nil
	}

	if err := v.cache.Set(ctx, userID, v.ttl); err != nil {
		v.log.Warn("failed to cache membership", slog.Any("error", err))
	}
	return Result{Verified: true}, nil
}

// Forget drops a cached result, used when a user is banned.
func (v *Verifier) Forget(ctx context.Context, userID int64) {
	if err := v.cache.Invalidate(ctx, userID); err != nil {
		v.log.Warn("failed to drop cached membership", slog.Any("error", err))
	}
}

func (v *Verifier) isMember(link string, userID int64) bool {
	handle := ChatHandle(link)
	if handle == "" {
		// Private invite links cannot be resolved by the Bot API.
		v.log.Debug("skipping unresolvable channel", slog.String("channel", link))
		return true
	}

	chat, err := v.members.ChatByUsername(handle)
	if err != nil {
		v.log.Warn("failed to resolve channel", slog.String("channel", link), slog.Any("error", err))
		return false
	}

	member, err := v.members.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		v.log.Warn("failed to check membership", slog.String("channel", link), slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}

	return joined(member)
}

func joined(m *tele.ChatMember) bool {
	if m == nil {
		return false
	}
	switch m.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true
	case tele.Restricted:
		return m.Member
	default:
		return false
	}
}

// ChatHandle converts "@name", "name" or "https://t.me/name" into
// "@name". Invite links and numeric ids are returned as "" and as is.
func ChatHandle(link string) string {
	link = strings.TrimSpace(link)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(link, prefix) {
			link = strings.TrimPrefix(link, prefix)
			break
		}
	}
	link = strings.TrimSuffix(link, "/")

	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "+"), strings.HasPrefix(link, "joinchat/"):
		return ""
	case strings.HasPrefix(link, "-100"):
		return link
	case strings.HasPrefix(link, "@"):
		return link
	default:
		return "@" + link
	}
}
