package authevents

// Notice is the user-facing copy shown after a forced logout.
type Notice struct {
	Title   string
	Message string
}

// NoticeFor returns the alert copy for reason. Inactive accounts and expired
// sessions get their own wording; everything else falls back to a generic notice.
func NoticeFor(reason Reason) Notice {
	switch reason {
	case ReasonInactive:
		return Notice{
			Title:   "Account Inactive",
			Message: "Your account has been deactivated. Please contact support for assistance.",
		}
	case ReasonRefreshTokenExpired, ReasonNoRefreshToken, ReasonRefreshFailed:
		return Notice{
			Title:   "Session Expired",
			Message: "Your session has expired. Please log in again.",
		}
	case ReasonManual:
		return Notice{
			Title:   "Logged Out",
			Message: "You have been logged out.",
		}
	default:
		return Notice{
			Title:   "Logged Out",
			Message: "You have been logged out. Please log in again to continue.",
		}
	}
}

// IsSessionExpiry reports whether reason means the session ran out rather than being
// ended by the user or the account state.
func (r Reason) IsSessionExpiry() bool {
	switch r {
	case ReasonRefreshTokenExpired, ReasonNoRefreshToken, ReasonRefreshFailed:
		return true
	}
	return false
}
