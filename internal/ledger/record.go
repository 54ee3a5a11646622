package ledger

import "time"

// Record statuses. Absent is never written by the redemption engine; it only
// exists for manual-entry collaborators and is otherwise inferred at
// analytics time from the distinct-session-date count.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// How a record was produced.
const (
	ViaToken     = "token"
	ViaManual    = "manual"
	ViaBiometric = "biometric"
)

// Record is one confirmed presence event: at most one per
// (group, person, calendar day), immutable once written.
type Record struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	PersonID  string    `json:"person_id"`
	Day       time.Time `json:"day"`
	Status    string    `json:"status"`
	MarkedVia string    `json:"marked_via"`
	MarkedAt  time.Time `json:"marked_at"`
}

// DayCount is the number of presence events on one calendar day.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// Day truncates t to its UTC calendar day, the ledger's uniqueness key.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
