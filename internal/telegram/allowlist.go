package telegram

// Allowlist decides which users may talk to the bot.
type Allowlist struct {
	restrict bool
	ids      map[int64]bool
}

// NewAllowlist creates an allowlist. When restrict is false everyone is allowed.
func NewAllowlist(restrict bool, ids []int64) Allowlist {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return Allowlist{restrict: restrict, ids: set}
}

// Allowed reports whether userID may use the bot.
func (a Allowlist) Allowed(userID int64) bool {
	if !a.restrict {
		return true
	}
	return a.ids[userID]
}
