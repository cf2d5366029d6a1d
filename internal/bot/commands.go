package bot

import (
	telebot "gopkg.in/telebot.v3"
)

// User commands.
const (
	CommandStart       = "/start"
	CommandCancel      = "/cancel"
	CommandRewards     = "/rewards"
	CommandAccount     = "/account"
	CommandReferral    = "/referral"
	CommandLeaderboard = "/leaderboard"
	CommandRedeem      = "/redeem"
	CommandReport      = "/report"
	CommandReview      = "/review"
	CommandTutorial    = "/tutorial"
)

// Admin and owner commands.
const (
	CommandAdmin         = "/admin"
	CommandLend          = "/lend"
	CommandGenerateKeys  = "/gen"
	CommandClaimCost     = "/uprice"
	CommandReferralBonus = "/rpoints"
	CommandBroadcast     = "/broadcast"
)

// publicCommands is the command list shown in the Telegram client menu.
var publicCommands = []telebot.Command{
	{Text: "start", Description: "Open the main menu"},
	{Text: "rewards", Description: "Browse rewards"},
	{Text: "account", Description: "Your balance and referrals"},
	{Text: "referral", Description: "Your referral link"},
	{Text: "leaderboard", Description: "Top users"},
	{Text: "redeem", Description: "Redeem a key"},
	{Text: "review", Description: "Leave a review"},
	{Text: "report", Description: "Report a problem"},
	{Text: "tutorial", Description: "How it works"},
	{Text: "cancel", Description: "Cancel the current action"},
}
