package bot

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	"github.com/Proton-105/rewards-bot/internal/state"
)

// Router picks one handler per update. Precedence: callback action,
// command, reply keyboard label, open dialog, fallback. The first three
// abandon any open dialog. Registration happens before polling starts.
type Router struct {
	fsm         state.StateMachine
	commands    map[string]handlers.Handler
	callbacks   map[string]handlers.CallbackHandler
	labels      map[string]handlers.Handler
	dialogs     map[state.State]handlers.Handler
	fallback    handlers.Handler
	middlewares []handlers.Middleware
	log         *slog.Logger
}

func NewRouter(fsm state.StateMachine, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		fsm:       fsm,
		commands:  make(map[string]handlers.Handler),
		callbacks: make(map[string]handlers.CallbackHandler),
		labels:    make(map[string]handlers.Handler),
		dialogs:   make(map[state.State]handlers.Handler),
		log:       log,
	}
}

// RegisterCommand binds a command such as "/start".
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.commands[strings.ToLower(cmd)] = h
}

// RegisterCallback binds a callback action.
func (r *Router) RegisterCallback(action string, h handlers.CallbackHandler) {
	r.callbacks[action] = h
}

// RegisterText binds the exact text of a reply keyboard button.
func (r *Router) RegisterText(label string, h handlers.Handler) {
	if label != "" {
		r.labels[label] = h
	}
}

// RegisterDialog binds the handler that consumes the reply a dialog waits for.
func (r *Router) RegisterDialog(s state.State, h handlers.Handler) {
	r.dialogs[s] = h
}

// Use appends a middleware. The first registered runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *Router) SetDefault(h handlers.Handler) {
	r.fallback = h
}

// Route handles one update.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}
	if cb := c.Callback(); cb != nil {
		defer func() {
			if err := c.Respond(); err != nil {
				r.log.Debug("callback respond failed", slog.Any("error", err))
			}
		}()
	}

	h, navigates, err := r.match(c)
	if err != nil {
		h = func(telebot.Context) error { return err }
	}
	if h == nil {
		return nil
	}
	if navigates {
		r.abandonDialog(c)
	}
	return r.wrap(h)(c)
}

func (r *Router) match(c telebot.Context) (h handlers.Handler, navigates bool, err error) {
	if cb := c.Callback(); cb != nil {
		action, _, err := keyboard.DecodeCallback(cb.Data)
		if err != nil {
			return nil, false, nil
		}
		if h, ok := r.callbacks[action]; ok {
			return handlers.Handler(h), true, nil
		}
		r.log.Info("no callback handler found", slog.String("data", cb.Data))
		return nil, false, nil
	}

	text := strings.TrimSpace(c.Text())
	if h, ok := r.commands[commandName(text)]; ok {
		return h, true, nil
	}
	if h, ok := r.labels[text]; ok && text != "" {
		return h, true, nil
	}

	if h, err := r.dialogHandler(c); err != nil || h != nil {
		return h, false, err
	}
	return r.fallback, false, nil
}

// dialogHandler returns the handler for the sender's open dialog, if any.
func (r *Router) dialogHandler(c telebot.Context) (handlers.Handler, error) {
	if r.fsm == nil || c.Sender() == nil {
		return nil, nil
	}

	st, err := r.fsm.Current(context.Background(), c.Sender().ID)
	if err != nil {
		return nil, err
	}
	if st.CurrentState == state.StateIdle {
		return nil, nil
	}

	h, ok := r.dialogs[st.CurrentState]
	if !ok {
		r.log.Info("no handler registered for state",
			slog.String("state", string(st.CurrentState)),
			slog.Int64("user_id", c.Sender().ID),
		)
	}
	return h, nil
}

func (r *Router) abandonDialog(c telebot.Context) {
	if r.fsm == nil || c.Sender() == nil {
		return
	}
	ctx := context.Background()
	st, err := r.fsm.Current(ctx, c.Sender().ID)
	if err != nil || st.CurrentState == state.StateIdle {
		return
	}
	if err := r.fsm.ClearState(ctx, c.Sender().ID); err != nil {
		r.log.Warn("failed to reset dialog", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
	}
}

func (r *Router) wrap(h handlers.Handler) handlers.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	return h
}

// commandName extracts "/cmd" from "/cmd@bot payload".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(cmd)
}
