package redemption

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"presence/internal/ledger"
	"presence/internal/queue"
	"presence/internal/roster"
	"presence/internal/session"
)

// Terminal outcomes of an issue or redemption attempt. None are retried by
// the engine; re-presenting a token is the caller's decision.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidLifetime  = errors.New("session lifetime must be positive")
	ErrGroupNotFound    = errors.New("group not found")
	ErrNotAuthorized    = errors.New("not authorized to issue for this group")
	ErrInvalidOrExpired = errors.New("invalid or expired token")
	ErrNotEnrolled      = errors.New("not enrolled in this group")
	ErrAlreadyMarked    = errors.New("attendance already marked for today")
)

// SessionStore is the slice of the session store the engine needs.
type SessionStore interface {
	Issue(ctx context.Context, groupID, issuerID string, lifetime time.Duration) (session.Session, error)
	RedeemCheck(ctx context.Context, id, presented string, now time.Time) (session.Session, session.CheckResult, error)
	RecordRedemption(ctx context.Context, id, personID string, now time.Time) error
}

// Roster supplies group ownership and membership, read-only.
type Roster interface {
	GetGroup(ctx context.Context, id string) (roster.Group, error)
	IsMember(ctx context.Context, groupID, personID string) (bool, error)
}

// Ledger is the durable attendance store. InsertUnique must be atomic with
// respect to the (group, person, day) key.
type Ledger interface {
	InsertUnique(ctx context.Context, rec ledger.Record) (ledger.Record, error)
}

// Publisher receives best-effort notifications of committed records.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Engine validates presented tokens and commits attendance records.
type Engine struct {
	sessions SessionStore
	roster   Roster
	ledger   Ledger
	events   Publisher // nil disables publishing
}

// NewEngine wires the engine's collaborators. events may be nil.
func NewEngine(sessions SessionStore, ros Roster, led Ledger, events Publisher) *Engine {
	return &Engine{sessions: sessions, roster: ros, ledger: led, events: events}
}

// IssueSession mints a session for the group after confirming the issuer owns
// it. A session is never born expired: lifetime must be positive.
func (e *Engine) IssueSession(ctx context.Context, groupID, issuerID string, lifetime time.Duration) (session.Session, error) {
	if lifetime <= 0 {
		return session.Session{}, ErrInvalidLifetime
	}
	g, err := e.roster.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return session.Session{}, ErrGroupNotFound
		}
		return session.Session{}, fmt.Errorf("load group: %w", err)
	}
	if g.OwnerID != issuerID {
		return session.Session{}, ErrNotAuthorized
	}
	s, err := e.sessions.Issue(ctx, groupID, issuerID, lifetime)
	if err != nil {
		return session.Session{}, err
	}
	sessionsIssued.Inc()
	return s, nil
}

// Redeem runs one redemption attempt: token validity, then membership, then
// the atomic ledger insert. Exactly one record comes out of a successful
// attempt; every failure is one of the sentinel outcomes above.
func (e *Engine) Redeem(ctx context.Context, sessionID, token, personID string, now time.Time) (ledger.Record, error) {
	s, res, err := e.sessions.RedeemCheck(ctx, sessionID, token, now)
	if err != nil && res != session.CheckExpired {
		return ledger.Record{}, outcomeErr("error", fmt.Errorf("session check: %w", err))
	}
	switch res {
	case session.CheckNotFound:
		return ledger.Record{}, outcomeErr("session_not_found", ErrSessionNotFound)
	case session.CheckExpired, session.CheckTokenMismatch:
		// Persisting the active flip may itself have failed; the rejection
		// stands either way.
		if err != nil {
			log.Printf("session %s: expiry flip not persisted: %v", sessionID, err)
		}
		return ledger.Record{}, outcomeErr("invalid_or_expired", ErrInvalidOrExpired)
	}

	member, err := e.roster.IsMember(ctx, s.GroupID, personID)
	if err != nil {
		return ledger.Record{}, outcomeErr("error", fmt.Errorf("membership check: %w", err))
	}
	if !member {
		return ledger.Record{}, outcomeErr("not_enrolled", ErrNotEnrolled)
	}

	rec, err := e.ledger.InsertUnique(ctx, ledger.Record{
		GroupID:   s.GroupID,
		PersonID:  personID,
		Day:       ledger.Day(now),
		Status:    ledger.StatusPresent,
		MarkedVia: ledger.ViaToken,
		MarkedAt:  now.UTC(),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			// A concurrent or repeated attempt won the day; expected, not an
			// internal error.
			return ledger.Record{}, outcomeErr("already_marked", ErrAlreadyMarked)
		}
		return ledger.Record{}, outcomeErr("error", fmt.Errorf("ledger insert: %w", err))
	}

	// The record is committed; everything after is advisory.
	if err := e.sessions.RecordRedemption(ctx, sessionID, personID, now); err != nil {
		log.Printf("session %s: redemption log append failed: %v", sessionID, err)
	}
	if e.events != nil {
		if err := e.events.Publish(ctx, queue.Message{Type: queue.TypeRedemption, Body: []byte(rec.ID)}); err != nil {
			log.Printf("record %s: publish failed: %v", rec.ID, err)
		}
	}
	redemptions.WithLabelValues("accepted").Inc()
	return rec, nil
}

func outcomeErr(outcome string, err error) error {
	redemptions.WithLabelValues(outcome).Inc()
	return err
}
