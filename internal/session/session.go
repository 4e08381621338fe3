package session

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// Session is the live authenticated context used to authorize transport
// calls.  Single writer (the Manager), read by the transport client.
type Session struct {
	Token        string
	XSRFToken    string
	RefreshToken string
	ExpiresAt    time.Time

	// generation lets concurrent callers detect that a refresh already
	// happened while they were waiting on the Manager's lock
	generation uint64
}

// Payload is what the transport's login/refresh calls hand back.  ExpiresAt
// may be zero, in which case the validity window is derived from the token
// itself (JWT exp claim) or from the configured session TTL.
type Payload struct {
	Token        string
	XSRFToken    string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// MarshalLog keeps the token material out of the structured logs
func (s Session) MarshalLog() interface{} {
	return map[string]interface{}{
		"expires_at": s.ExpiresAt,
		"generation": s.generation,
	}
}

// tokenExpiry extracts the exp claim when the access token happens to be a
// JWT.  The token is not verified here, the platform remains the authority,
// the claim only bounds the local validity window.
func tokenExpiry(token string, issuedAt time.Time, fallbackTTL time.Duration) time.Time {
	claims := jwt.MapClaims{}
	_, _, err := new(jwt.Parser).ParseUnverified(token, claims)
	if err == nil {
		if exp, ok := claims["exp"].(float64); ok && exp > 0 {
			return time.Unix(int64(exp), 0)
		}
	}

	return issuedAt.Add(fallbackTTL)
}
