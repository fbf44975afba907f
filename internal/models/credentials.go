package models

import "time"

// CredentialSet is the refreshable credential record persisted between runs.
//
// All three fields come from the same token exchange or refresh response.
type CredentialSet struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// IsZero reports whether the set carries no access token.
func (c CredentialSet) IsZero() bool {
	return c.AccessToken == ""
}

// Expired reports whether the access token is past its expiry at now, treating tokens within skew of expiry as expired.
//
// A zero ExpiresAt never expires.
func (c CredentialSet) Expired(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}
