package session

import (
	"testing"
	"time"
)

func testSession(t0 time.Time) Session {
	return Session{
		ID:         "s1",
		GroupID:    "g1",
		IssuerID:   "teacher-1",
		Token:      "correct-token",
		ValidFrom:  t0,
		ValidUntil: t0.Add(15 * time.Minute),
		Active:     true,
	}
}

func TestCheckValidWithinLifetime(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := testSession(t0)

	if got := s.Check("correct-token", t0.Add(5*time.Minute)); got != CheckValid {
		t.Errorf("Check = %v, want CheckValid", got)
	}
}

func TestCheckExpiredAfterValidUntil(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := testSession(t0)

	if got := s.Check("correct-token", t0.Add(16*time.Minute)); got != CheckExpired {
		t.Errorf("Check at t0+16m = %v, want CheckExpired", got)
	}
	// The boundary instant itself is still valid.
	if got := s.Check("correct-token", t0.Add(15*time.Minute)); got != CheckValid {
		t.Errorf("Check at validUntil = %v, want CheckValid", got)
	}
}

func TestCheckInactiveReportsExpiredWithoutTimeComparison(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := testSession(t0)
	s.Active = false

	// Even with a matching token inside the window, a deactivated session is
	// expired. The flag short-circuits before any other comparison.
	if got := s.Check("correct-token", t0.Add(1*time.Minute)); got != CheckExpired {
		t.Errorf("Check on inactive session = %v, want CheckExpired", got)
	}
	if got := s.Check("wrong-token", t0.Add(1*time.Minute)); got != CheckExpired {
		t.Errorf("Check on inactive session with wrong token = %v, want CheckExpired", got)
	}
}

func TestCheckTokenMismatch(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := testSession(t0)

	if got := s.Check("wrong-token", t0.Add(1*time.Minute)); got != CheckTokenMismatch {
		t.Errorf("Check = %v, want CheckTokenMismatch", got)
	}
}

func TestNewTokenEntropy(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatalf("newToken: %v", err)
	}
	if len(a) != tokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(a), tokenBytes*2)
	}
	b, err := newToken()
	if err != nil {
		t.Fatalf("newToken: %v", err)
	}
	if a == b {
		t.Error("two tokens collided")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	s := testSession(time.Now())
	encoded := EncodePayload(s)

	p, err := DecodePayload(encoded)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.SessionID != s.ID || p.Token != s.Token || p.GroupID != s.GroupID {
		t.Errorf("payload = %+v, want fields of %+v", p, s)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	if _, err := DecodePayload("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
