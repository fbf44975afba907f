package auth

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
	"golang.org/x/oauth2"
)

// Refresher trades a refresh token for a new credential set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.CredentialSet, error)
}

// OAuthRefresher refreshes through the token endpoint of an [oauth2.Config].
type OAuthRefresher struct {
	config *oauth2.Config
}

func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (models.CredentialSet, error) {
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return models.CredentialSet{}, err
	}
	return FromToken(tok), nil
}

// FromToken converts an oauth2 token response into a credential set.
func FromToken(tok *oauth2.Token) models.CredentialSet {
	return models.CredentialSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}
