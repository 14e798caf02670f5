package platform

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---------------------------------------------------------------------------
// Storefront Configuration
// ---------------------------------------------------------------------------

var (
	ErrStorefrontBaseURLRequired = errors.New("storefront: api base url is required")
	ErrStorefrontSecretRequired  = errors.New("storefront: api secret is required")
)

// StorefrontConfig holds the connection settings for a merchant's own
// storefront API. Calls authenticate with short-lived HS256 bearer tokens
// minted from the shared API secret.
type StorefrontConfig struct {
	APIBaseURL string
	APISecret  string
	// TokenTTL bounds the lifetime of minted bearer tokens
	TokenTTL time.Duration
}

// Validate checks that the configuration is usable
func (c *StorefrontConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrStorefrontBaseURLRequired
	}
	if c.APISecret == "" {
		return ErrStorefrontSecretRequired
	}
	return nil
}

// tokenTTL returns the configured token lifetime or the 15 minute default
func (c *StorefrontConfig) tokenTTL() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return 15 * time.Minute
}

// MintToken issues a short-lived bearer token for the given shop
func (c *StorefrontConfig) MintToken(shopID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(c.tokenTTL())
	claims := jwt.RegisteredClaims{
		Subject:   shopID,
		Issuer:    "omnisync",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.APISecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
