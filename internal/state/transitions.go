package state

// dialogStarts can be entered from idle. Each waits for a single reply.
var dialogStarts = map[State]bool{
	StateAwaitingReview:      true,
	StateAwaitingReport:      true,
	StateAwaitingRedeemCode:  true,
	StateAdminPlatformName:   true,
	StateAdminPlatformRename: true,
	StateAdminPlatformPrice:  true,
	StateAdminStockUpload:    true,
	StateAdminChannelLink:    true,
	StateAdminAddAdmin:       true,
	StateAdminBroadcast:      true,
}

// CanTransition reports whether a dialog may move from s to next. Idle and
// error are reachable from anywhere; the only multi-step dialog is a new
// platform followed by its first stock upload.
func (s State) CanTransition(next State) bool {
	switch {
	case next == StateIdle, next == StateError:
		return true
	case s == StateIdle:
		return dialogStarts[next]
	case s == StateAdminPlatformName:
		return next == StateAdminStockUpload
	default:
		return false
	}
}
