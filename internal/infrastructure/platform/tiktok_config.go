package platform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// TikTokConfig holds configuration for TikTok Shop API integration
type TikTokConfig struct {
	// AppKey is the application key from the TikTok Shop partner center
	AppKey string
	// AppSecret is the application secret used for request signing
	AppSecret string
	// APIBaseURL is the base URL for the TikTok Shop API
	APIBaseURL string
	// IsSandbox indicates if this is a sandbox environment
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// TikTokProductionAPIURL is the production API endpoint
	TikTokProductionAPIURL = "https://open-api.tiktokglobalshop.com"
	// TikTokSandboxAPIURL is the sandbox API endpoint
	TikTokSandboxAPIURL = "https://open-api-sandbox.tiktokglobalshop.com"
)

// Errors for TikTok Shop configuration
var (
	ErrTikTokConfigMissingAppKey    = errors.New("tiktok: app key is required")
	ErrTikTokConfigMissingAppSecret = errors.New("tiktok: app secret is required")
)

// NewTikTokConfig creates a new TikTok Shop configuration with defaults
func NewTikTokConfig(appKey, appSecret string) *TikTokConfig {
	return &TikTokConfig{
		AppKey:         appKey,
		AppSecret:      appSecret,
		APIBaseURL:     TikTokProductionAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the TikTok Shop configuration
func (c *TikTokConfig) Validate() error {
	if c.AppKey == "" {
		return ErrTikTokConfigMissingAppKey
	}
	if c.AppSecret == "" {
		return ErrTikTokConfigMissingAppSecret
	}
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = TikTokSandboxAPIURL
		} else {
			c.APIBaseURL = TikTokProductionAPIURL
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Sign generates the HMAC-SHA256 signature for a TikTok Shop call.
// The base string is secret + path + sorted key/value query params + body +
// secret, hashed with the app secret.
func (c *TikTokConfig) Sign(path string, params map[string]string, body string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || k == "access_token" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(c.AppSecret)
	builder.WriteString(path)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}
	builder.WriteString(body)
	builder.WriteString(c.AppSecret)

	h := hmac.New(sha256.New, []byte(c.AppSecret))
	h.Write([]byte(builder.String()))
	return hex.EncodeToString(h.Sum(nil))
}
