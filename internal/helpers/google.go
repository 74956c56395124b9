package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleIdentity is the subset of a Google ID token the API uses.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// IdentityVerifier checks an external ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type GoogleVerifier struct {
	clientID string
	jwks     *keyfunc.JWKS
}

// NewGoogleVerifier fetches Google's signing keys and keeps them refreshed in
// the background until Close is called.
func NewGoogleVerifier(ctx context.Context, clientID, jwksURL string) (*GoogleVerifier, error) {
	if jwksURL == "" {
		jwksURL = DefaultGoogleJWKSURL
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load google keys: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, jwks: jwks}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	token, err := jwt.ParseWithClaims(idToken, &googleClaims{}, g.jwks.Keyfunc,
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("google token validation failed: %w", err)
	}
	claims, ok := token.Claims.(*googleClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid google token")
	}
	if !validGoogleIssuer(claims.Issuer) {
		return nil, fmt.Errorf("unexpected token issuer %q", claims.Issuer)
	}
	return &GoogleIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}

func (g *GoogleVerifier) Close() {
	g.jwks.EndBackground()
}

func validGoogleIssuer(iss string) bool {
	for _, allowed := range googleIssuers {
		if iss == allowed {
			return true
		}
	}
	return false
}
