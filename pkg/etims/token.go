package etims

import (
	"encoding/json"
	"time"
)

const (
	// tokenExpiryBuffer is how long before expiry a token stops being used.
	tokenExpiryBuffer = 5 * time.Minute
	// defaultTokenTTL applies when the token endpoint omits expires_in.
	defaultTokenTTL = 3600 * time.Second
	// maxTokenTTL caps expires_in so large values cannot overflow time.Duration.
	maxTokenTTL = 24 * time.Hour
)

// Credentials are the OAuth client credentials issued by KRA for one integrator.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is a bearer token and the instant it stops being accepted.
type Token struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// validAt reports whether the token can still be sent at now.
func (t Token) validAt(now time.Time) bool {
	if t.Value == "" || t.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-tokenExpiryBuffer))
}

// tokenResponse is the body of /oauth2/v1/generate.
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
	TokenType   string      `json:"token_type,omitempty"`
	Scope       string      `json:"scope,omitempty"`
}

// ttl returns the lifetime granted by the server, defaulting to an hour.
func (r tokenResponse) ttl() time.Duration {
	if r.ExpiresIn == "" {
		return defaultTokenTTL
	}
	secs, err := r.ExpiresIn.Float64()
	if err != nil || secs <= 0 {
		return defaultTokenTTL
	}
	if secs >= maxTokenTTL.Seconds() {
		return maxTokenTTL
	}
	return time.Duration(secs * float64(time.Second))
}
