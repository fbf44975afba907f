package auth

import (
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

// Attempt holds the secrets generated for one authorization handshake.
type Attempt struct {
	Verifier  string
	Challenge string
	State     string
}

// NewAttempt generates a random verifier, its S256 challenge and a CSRF state token.
func NewAttempt() (*Attempt, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	return &Attempt{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		State:     state,
	}, nil
}

// AuthCodeURL builds the authorization URL a human visits for this attempt.
func (a *Attempt) AuthCodeURL(config *oauth2.Config) string {
	return config.AuthCodeURL(a.State, oauth2.S256ChallengeOption(a.Verifier))
}
