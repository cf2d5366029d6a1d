package ledger

import apperrors "github.com/Proton-105/rewards-bot/internal/errors"

var (
	ErrUserNotFound     = apperrors.NewNotFound("E101", "user not found", "You are not registered yet. Send /start first.")
	ErrPlatformNotFound = apperrors.NewNotFound("E102", "platform not found", "Platform not found.")
	ErrKeyNotFound      = apperrors.NewNotFound("E103", "key not found", "Invalid key.")
	ErrAdminNotFound    = apperrors.NewNotFound("E104", "admin not found", "Admin not found.")
	ErrReportNotFound   = apperrors.NewNotFound("E105", "report not found", "Report not found.")
	ErrChannelNotFound  = apperrors.NewNotFound("E106", "channel not found", "Channel not found.")

	ErrInsufficientBalance = apperrors.NewPrecondition("E201", "insufficient balance", "Insufficient points. Earn more via referrals or keys.")
	ErrOutOfStock          = apperrors.NewPrecondition("E202", "out of stock", "No accounts available right now.")
	ErrKeyAlreadyClaimed   = apperrors.NewPrecondition("E203", "key already claimed", "This key has already been claimed.")
	ErrUserBanned          = apperrors.NewPrecondition("E204", "user is banned", "You are banned from using this bot.")
	ErrPlatformExists      = apperrors.NewPrecondition("E205", "platform already exists", "A platform with this name already exists.")
	ErrReportClaimed       = apperrors.NewPrecondition("E206", "report already claimed or closed", "This report is already handled.")
	ErrChannelExists       = apperrors.NewPrecondition("E207", "channel already exists", "This channel is already required.")
	ErrNotAuthorized       = apperrors.NewPrecondition("E208", "not authorized", "You are not allowed to do that.")
)

// resultLabel maps an engine error to a metrics label.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := apperrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unknown"
}
