package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/bot/handlers"
	"github.com/Proton-105/rewards-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/rewards-bot/internal/errors"
	"github.com/Proton-105/rewards-bot/internal/idempotency"
	"github.com/Proton-105/rewards-bot/internal/middleware"
	"github.com/Proton-105/rewards-bot/internal/state"
	"github.com/Proton-105/rewards-bot/pkg/config"
)

// Options carries the optional parts of the middleware chain.
type Options struct {
	ErrorHandler *errors.Handler
	Idempotency  idempotency.Manager
	RateLimit    *middleware.RateLimitMiddleware
}

// Bot wraps telebot.Bot with the router serving every update.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	deps    *handlers.Deps
	log     *slog.Logger
}

// NewTelebot creates the Bot API client in polling or webhook mode.
func NewTelebot(cfg config.BotConfig) (*telebot.Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Token,
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}
	return tb, nil
}

// New wires the router around deps and registers it on tb. tb may be nil
// in tests, in which case updates are fed through Route.
func New(tb *telebot.Bot, deps *handlers.Deps, opts Options) *Bot {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	if tb != nil {
		if deps.Files == nil {
			deps.Files = tb
		}
		if deps.Sender == nil {
			deps.Sender = tb
		}
		if deps.BotUsername == "" && tb.Me != nil {
			deps.BotUsername = tb.Me.Username
		}
	}

	b := &Bot{
		telebot: tb,
		router:  NewRouter(deps.FSM, log),
		deps:    deps,
		log:     log,
	}

	b.setupMiddlewares(opts)
	b.registerCommands()
	b.registerCallbacks()
	b.registerStates()
	b.registerLabels()
	b.router.SetDefault(b.fallback())

	if tb != nil {
		tb.Handle(telebot.OnText, b.router.Route)
		tb.Handle(telebot.OnCallback, b.router.Route)
		tb.Handle(telebot.OnDocument, b.router.Route)
	}

	return b
}

// Route feeds one update through the router.
func (b *Bot) Route(c telebot.Context) error {
	return b.router.Route(c)
}

// Start publishes the command menu and runs the update loop until Stop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}
	if err := b.telebot.SetCommands(publicCommands); err != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupMiddlewares(opts Options) {
	b.router.Use(RecoveryMiddleware(b.log, opts.ErrorHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Idempotency(opts.Idempotency, b.log))
	b.router.Use(ErrorHandlingMiddleware(opts.ErrorHandler))
	b.router.Use(EnsureUserMiddleware(b.deps.Ledger.Accounts, b.log))
	if opts.RateLimit != nil {
		b.router.Use(opts.RateLimit.Handle)
	}
	b.router.Use(middleware.Metrics)
}

func (b *Bot) registerCommands() {
	d := b.deps

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(d))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(d))
	b.router.RegisterCommand(CommandRewards, handlers.NewScreenHandler(d, keyboard.MenuRewards))
	b.router.RegisterCommand(CommandAccount, handlers.NewScreenHandler(d, keyboard.MenuAccount))
	b.router.RegisterCommand(CommandReferral, handlers.NewScreenHandler(d, keyboard.MenuReferral))
	b.router.RegisterCommand(CommandLeaderboard, handlers.NewScreenHandler(d, keyboard.MenuLeaderboard))
	b.router.RegisterCommand(CommandTutorial, handlers.NewScreenHandler(d, keyboard.MenuTutorial))
	b.router.RegisterCommand(CommandRedeem, handlers.NewRedeemCommandHandler(d))
	b.router.RegisterCommand(CommandReview, handlers.NewReviewPromptHandler(d))
	b.router.RegisterCommand(CommandReport, handlers.NewReportCommandHandler(d))

	b.router.RegisterCommand(CommandAdmin, handlers.NewAdminCommandHandler(d))
	b.router.RegisterCommand(CommandLend, handlers.NewLendHandler(d))
	b.router.RegisterCommand(CommandGenerateKeys, handlers.NewGenerateKeysHandler(d))
	b.router.RegisterCommand(CommandClaimCost, handlers.NewSetClaimCostHandler(d))
	b.router.RegisterCommand(CommandReferralBonus, handlers.NewSetReferralBonusHandler(d))
	b.router.RegisterCommand(CommandBroadcast, handlers.NewBroadcastHandler(d))
}

func (b *Bot) registerCallbacks() {
	d := b.deps

	b.router.RegisterCallback(keyboard.ActionMenu, handlers.NewMenuHandler(d))
	b.router.RegisterCallback(keyboard.ActionPlatform, handlers.NewPlatformHandler(d))
	b.router.RegisterCallback(keyboard.ActionClaim, handlers.NewClaimHandler(d))
	b.router.RegisterCallback(keyboard.ActionLeaderboard, handlers.NewLeaderboardHandler(d))
	b.router.RegisterCallback(keyboard.ActionReview, handlers.CallbackHandler(handlers.NewReviewPromptHandler(d)))
	b.router.RegisterCallback(keyboard.ActionReport, handlers.CallbackHandler(handlers.NewReportCommandHandler(d)))
	b.router.RegisterCallback(keyboard.ActionVerify, handlers.NewVerifyHandler(d))
	b.router.RegisterCallback(keyboard.ActionCancel, handlers.CallbackHandler(handlers.NewCancelHandler(d)))

	b.router.RegisterCallback(keyboard.ActionAdmin, handlers.NewAdminSectionHandler(d))
	b.router.RegisterCallback(keyboard.ActionAdminPlatform, handlers.NewAdminPlatformHandler(d))
	b.router.RegisterCallback(keyboard.ActionPlatformAdd, handlers.NewAdminPromptHandler(d, state.StateAdminPlatformName, "prompt.platform_name"))
	b.router.RegisterCallback(keyboard.ActionPlatformRename, handlers.NewAdminPromptHandler(d, state.StateAdminPlatformRename, "prompt.platform_rename"))
	b.router.RegisterCallback(keyboard.ActionPlatformPrice, handlers.NewAdminPromptHandler(d, state.StateAdminPlatformPrice, "prompt.platform_price"))
	b.router.RegisterCallback(keyboard.ActionStockAdd, handlers.NewAdminPromptHandler(d, state.StateAdminStockUpload, "prompt.stock_upload"))
	b.router.RegisterCallback(keyboard.ActionStockReplace, handlers.NewAdminPromptHandler(d, state.StateAdminStockUpload, "prompt.stock_upload"))
	b.router.RegisterCallback(keyboard.ActionChannelAdd, handlers.NewAdminPromptHandler(d, state.StateAdminChannelLink, "prompt.channel_link"))
	b.router.RegisterCallback(keyboard.ActionAdminAdd, handlers.NewAdminPromptHandler(d, state.StateAdminAddAdmin, "prompt.admin_add"))
	b.router.RegisterCallback(keyboard.ActionPlatformRemove, handlers.NewPlatformRemoveHandler(d))
	b.router.RegisterCallback(keyboard.ActionChannelRemove, handlers.NewChannelRemoveHandler(d))
	b.router.RegisterCallback(keyboard.ActionAdminRemove, handlers.NewAdminRemoveHandler(d))
	b.router.RegisterCallback(keyboard.ActionAdminBan, handlers.NewAdminBanHandler(d))
	b.router.RegisterCallback(keyboard.ActionUsers, handlers.NewUsersHandler(d))
	b.router.RegisterCallback(keyboard.ActionUserBan, handlers.NewUserBanHandler(d, true))
	b.router.RegisterCallback(keyboard.ActionUserUnban, handlers.NewUserBanHandler(d, false))
	b.router.RegisterCallback(keyboard.ActionReportClaim, handlers.NewReportClaimHandler(d))
	b.router.RegisterCallback(keyboard.ActionReportClose, handlers.NewReportCloseHandler(d))
}

func (b *Bot) registerStates() {
	d := b.deps

	b.router.RegisterDialog(state.StateAwaitingRedeemCode, handlers.NewRedeemCodeStateHandler(d))
	b.router.RegisterDialog(state.StateAwaitingReview, handlers.NewReviewStateHandler(d))
	b.router.RegisterDialog(state.StateAwaitingReport, handlers.NewReportStateHandler(d))
	b.router.RegisterDialog(state.StateAdminPlatformName, handlers.NewPlatformNameStateHandler(d))
	b.router.RegisterDialog(state.StateAdminPlatformRename, handlers.NewPlatformRenameStateHandler(d))
	b.router.RegisterDialog(state.StateAdminPlatformPrice, handlers.NewPlatformPriceStateHandler(d))
	b.router.RegisterDialog(state.StateAdminStockUpload, handlers.NewStockUploadStateHandler(d))
	b.router.RegisterDialog(state.StateAdminChannelLink, handlers.NewChannelLinkStateHandler(d))
	b.router.RegisterDialog(state.StateAdminAddAdmin, handlers.NewAddAdminStateHandler(d))
	b.router.RegisterDialog(state.StateAdminBroadcast, handlers.NewBroadcastStateHandler(d))
}

func (b *Bot) registerLabels() {
	d := b.deps

	b.router.RegisterText(d.T(keyboard.LabelRewards), handlers.NewScreenHandler(d, keyboard.MenuRewards))
	b.router.RegisterText(d.T(keyboard.LabelAccount), handlers.NewScreenHandler(d, keyboard.MenuAccount))
	b.router.RegisterText(d.T(keyboard.LabelReferral), handlers.NewScreenHandler(d, keyboard.MenuReferral))
	b.router.RegisterText(d.T(keyboard.LabelLeaderboard), handlers.NewScreenHandler(d, keyboard.MenuLeaderboard))
	b.router.RegisterText(d.T(keyboard.LabelRedeem), handlers.NewScreenHandler(d, keyboard.MenuRedeem))
	b.router.RegisterText(d.T(keyboard.LabelTutorial), handlers.NewScreenHandler(d, keyboard.MenuTutorial))
	b.router.RegisterText(d.T(keyboard.LabelReview), handlers.NewReviewPromptHandler(d))
	b.router.RegisterText(d.T(keyboard.LabelReport), handlers.NewReportCommandHandler(d))
}

// fallback answers unmatched private messages with the main menu and
// ignores everything else.
func (b *Bot) fallback() handlers.Handler {
	menu := handlers.NewScreenHandler(b.deps, keyboard.MenuMain)
	return func(c telebot.Context) error {
		if !handlers.NewEvent(c).Private {
			return nil
		}
		return menu(c)
	}
}
