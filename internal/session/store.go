package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound means no session exists under the id (never issued, or already
// reclaimed by redis).
var ErrNotFound = errors.New("session not found")

// tokenBytes gives 256 bits of entropy, enough that guessing within a
// session's lifetime is infeasible.
const tokenBytes = 32

// Store keeps sessions in redis, one key per session. Keys carry a TTL of
// validUntil plus a retention window: redis reclaims stale sessions on its
// own, and the window lets late presenters see "expired" instead of
// "not found" for a while.
type Store struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewStore creates a session store.
func NewStore(rdb *redis.Client, retention time.Duration) *Store {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Store{rdb: rdb, retention: retention}
}

func key(id string) string { return "session:" + id }

// newToken draws tokenBytes from the system CSPRNG, hex encoded.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue mints a new active session for the group. Caller authorization
// (issuer owns the group) is the redemption engine's job.
func (st *Store) Issue(ctx context.Context, groupID, issuerID string, lifetime time.Duration) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	s := Session{
		ID:         uuid.NewString(),
		GroupID:    groupID,
		IssuerID:   issuerID,
		Token:      token,
		ValidFrom:  now,
		ValidUntil: now.Add(lifetime),
		Active:     true,
	}
	if err := st.save(ctx, s, lifetime+st.retention); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Lookup returns the session stored under id.
func (st *Store) Lookup(ctx context.Context, id string) (Session, error) {
	raw, err := st.rdb.Get(ctx, key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// RedeemCheck validates a presented token without recording anything. When
// expiry is what failed the check, the active flag is flipped off in redis so
// later checks short-circuit.
func (st *Store) RedeemCheck(ctx context.Context, id, presented string, now time.Time) (Session, CheckResult, error) {
	s, err := st.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, CheckNotFound, nil
		}
		return Session{}, CheckNotFound, err
	}
	res := s.Check(presented, now)
	if res == CheckExpired && s.Active {
		// Lazy expiry. Last writer wins; the flag only ever goes true->false.
		s.Active = false
		if err := st.update(ctx, s); err != nil {
			return s, res, err
		}
	}
	return s, res, nil
}

// RecordRedemption appends a person to the session's redemption log. The log
// is advisory, so a concurrent append may be lost without harm.
func (st *Store) RecordRedemption(ctx context.Context, id, personID string, now time.Time) error {
	s, err := st.Lookup(ctx, id)
	if err != nil {
		return err
	}
	s.Redemptions = append(s.Redemptions, Redemption{PersonID: personID, RedeemedAt: now.UTC()})
	return st.update(ctx, s)
}

func (st *Store) save(ctx context.Context, s Session, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return st.rdb.Set(ctx, key(s.ID), raw, ttl).Err()
}

// update rewrites the session value, keeping whatever TTL the key already has.
func (st *Store) update(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return st.rdb.Set(ctx, key(s.ID), raw, redis.KeepTTL).Err()
}
