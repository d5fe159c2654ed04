package profile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const CurrentVersion = 1

var (
	ErrCorrupt            = errors.New("corrupt_payload")
	ErrUnsupportedVersion = errors.New("unsupported_version")
	ErrBadSignature       = errors.New("bad_signature")
	ErrNoSessionKey       = errors.New("session_key_required")
)

type envelope struct {
	Version int             `json:"version"`
	Profile json.RawMessage `json:"profile,omitempty"`
	Session json.RawMessage `json:"session,omitempty"`
}

func Encode(p Profile) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: CurrentVersion, Profile: raw})
}

func Decode(b []byte) (Profile, error) {
	env, err := openEnvelope(b)
	if err != nil {
		return Profile{}, err
	}
	if len(env.Profile) == 0 {
		return Profile{}, fmt.Errorf("%w: missing profile", ErrCorrupt)
	}
	var p Profile
	if err := json.Unmarshal(env.Profile, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if p.Prompts == nil {
		p.Prompts = map[Capability]string{}
	}
	return p, nil
}

// EncodeSession produces a cookie-safe, HMAC-SHA256 signed encoding of the
// session record: "<payload>.<mac>", both base64url.
func EncodeSession(s UserSession, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrNoSessionKey
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(envelope{Version: CurrentVersion, Session: raw})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(b)
	return payload + "." + base64.RawURLEncoding.EncodeToString(sessionMAC(key, payload)), nil
}

// DecodeSession verifies the signature before reading the record. Unsigned
// or re-signed values yield ErrBadSignature.
func DecodeSession(v string, key []byte) (UserSession, error) {
	if len(key) == 0 {
		return UserSession{}, ErrNoSessionKey
	}
	payload, sig, ok := strings.Cut(v, ".")
	if !ok {
		return UserSession{}, ErrBadSignature
	}
	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac, sessionMAC(key, payload)) {
		return UserSession{}, ErrBadSignature
	}
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return UserSession{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	env, err := openEnvelope(b)
	if err != nil {
		return UserSession{}, err
	}
	var s UserSession
	if len(env.Session) == 0 {
		return UserSession{}, fmt.Errorf("%w: missing session", ErrCorrupt)
	}
	if err := json.Unmarshal(env.Session, &s); err != nil {
		return UserSession{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Username == "" {
		return UserSession{}, fmt.Errorf("%w: missing username", ErrCorrupt)
	}
	return s, nil
}

func sessionMAC(key []byte, payload string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

func openEnvelope(b []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version == 0 {
		return envelope{}, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if env.Version > CurrentVersion {
		return envelope{}, ErrUnsupportedVersion
	}
	return env, nil
}
