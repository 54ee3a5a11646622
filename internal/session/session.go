package session

import "time"

// Redemption is one person's successful claim against a session. The list is
// advisory: the attendance ledger, not this log, is the source of truth.
type Redemption struct {
	PersonID   string    `json:"person_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// Session is a time-bounded redemption token for one group. It stays valid
// for every eligible member until expiry; per-person single use is enforced
// by the ledger's uniqueness key, not here.
type Session struct {
	ID          string       `json:"id"`
	GroupID     string       `json:"group_id"`
	IssuerID    string       `json:"issuer_id"`
	Token       string       `json:"token"`
	ValidFrom   time.Time    `json:"valid_from"`
	ValidUntil  time.Time    `json:"valid_until"`
	Active      bool         `json:"active"`
	Redemptions []Redemption `json:"redemptions,omitempty"`
}

// CheckResult classifies a redemption check against a session.
type CheckResult int

const (
	CheckValid CheckResult = iota
	CheckExpired
	CheckTokenMismatch
	CheckNotFound
)

func (r CheckResult) String() string {
	switch r {
	case CheckValid:
		return "valid"
	case CheckExpired:
		return "expired"
	case CheckTokenMismatch:
		return "token mismatch"
	default:
		return "not found"
	}
}

// Check validates a presented token against the session at the given instant.
// It is pure; the caller persists the active=false flip when expiry is
// observed. An already-deactivated session reports expired without a time
// comparison.
func (s Session) Check(presented string, now time.Time) CheckResult {
	if !s.Active {
		return CheckExpired
	}
	if s.Token != presented {
		return CheckTokenMismatch
	}
	if now.After(s.ValidUntil) {
		return CheckExpired
	}
	return CheckValid
}
