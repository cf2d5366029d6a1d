package handlers

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/domain"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Context keys set by the bot middleware chain.
const (
	ContextUserKey    = "user"
	ContextNewUserKey = "new_user"
)

// Event is an inbound update reduced to what handlers act on.
type Event struct {
	ActorID int64
	ChatID  int64
	// ReplyTarget is the chat the update arrived in.
	ReplyTarget telebot.Recipient
	Private     bool
	Name        string
	Username    string
	Text        string
	Payload     string
}

// NewEvent normalizes c. Updates without a chat are treated as private.
func NewEvent(c telebot.Context) Event {
	var e Event
	if c == nil {
		return e
	}

	if u := c.Sender(); u != nil {
		e.ActorID = u.ID
		e.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
		e.Username = u.Username
	}

	if chat := c.Chat(); chat != nil {
		e.ChatID = chat.ID
		e.Private = chat.Type == telebot.ChatPrivate
		e.ReplyTarget = chat
	} else {
		e.ChatID = e.ActorID
		e.Private = true
		e.ReplyTarget = telebot.ChatID(e.ActorID)
	}

	e.Text = strings.TrimSpace(c.Text())
	if m := c.Message(); m != nil {
		e.Payload = strings.TrimSpace(m.Payload)
	}
	return e
}

// UserID is the ledger identifier of the actor.
func (e Event) UserID() string {
	return strconv.FormatInt(e.ActorID, 10)
}

// DM addresses the actor's private chat.
func (e Event) DM() telebot.Recipient {
	return telebot.ChatID(e.ActorID)
}

// DisplayName prefers @username, then the full name, then the id.
func (e Event) DisplayName() string {
	switch {
	case e.Username != "":
		return "@" + e.Username
	case e.Name != "":
		return e.Name
	default:
		return e.UserID()
	}
}

// CurrentUser returns the account loaded by the middleware chain.
func CurrentUser(c telebot.Context) *domain.User {
	if c == nil {
		return nil
	}
	u, _ := c.Get(ContextUserKey).(*domain.User)
	return u
}
