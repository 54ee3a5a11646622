package session

import (
	"encoding/base64"
	"encoding/json"
)

// Payload is what a scanning client needs to redeem: enough to find the
// session and prove the token was seen. Rendering it as an actual QR image is
// the client's problem; the server only hands out the opaque encoding.
type Payload struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	GroupID   string `json:"group_id"`
}

// EncodePayload returns the session's payload as base64 JSON.
func EncodePayload(s Session) string {
	raw, _ := json.Marshal(Payload{SessionID: s.ID, Token: s.Token, GroupID: s.GroupID})
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(encoded string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
