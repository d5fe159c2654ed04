package proxy

import (
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/profile"
)

const (
	AccessTokenCookie = "access_token"
	SessionCookie     = "alchemist_session"
)

// CookieConfig controls the login cookies. Secret signs the session record.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
	Secret []byte
}

func (c CookieConfig) set(w http.ResponseWriter, name, value string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: httpOnly,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the caller's bearer token from the Authorization header,
// falling back to the access_token cookie.
func Token(r *http.Request) string {
	const prefix = "Bearer "
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, prefix) {
		if tok := strings.TrimSpace(strings.TrimPrefix(v, prefix)); tok != "" {
			return tok
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Session returns the logged-in user record when the cookie carries a valid
// signature from this server.
func (c CookieConfig) Session(r *http.Request) (profile.UserSession, bool) {
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return profile.UserSession{}, false
	}
	s, err := profile.DecodeSession(ck.Value, c.Secret)
	if err != nil {
		if errors.Is(err, profile.ErrBadSignature) {
			sessionRejectedTotal.Add(1)
		}
		return profile.UserSession{}, false
	}
	return s, true
}

// sessionKey returns the configured secret, or a random one when none is
// set; sessions then do not survive a restart.
func sessionKey(secret string) []byte {
	if secret != "" {
		return []byte(secret)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	log.Warn().Msg("SESSION_SECRET not set; using an ephemeral session key")
	return key
}
