package models

import "time"

// OAuthServiceX is the service key of the posting account credential.
const OAuthServiceX = "x"

// OAuthCredential is the persisted OAuth2 token pair of the service's own
// posting account. A single row per service, shared by all process instances.
type OAuthCredential struct {
	// Service identifies the credential. There is one row per service.
	Service string `json:"service" gorm:"column:service;primaryKey"`
	// AccessToken is the current bearer token.
	AccessToken string `json:"-" gorm:"column:access_token;not null"`
	// RefreshToken is used to obtain a new access token on expiry.
	RefreshToken string `json:"-" gorm:"column:refresh_token;not null"`
	// TokenType is the token type returned by the provider, normally Bearer.
	TokenType string `json:"token_type" gorm:"column:token_type"`
	// ExpiresIn is the token lifetime in seconds, counted from CreatedAt.
	ExpiresIn int64 `json:"expires_in" gorm:"column:expires_in"`
	// Scope is the granted scope set.
	Scope string `json:"scope" gorm:"column:scope"`
	// CreatedAt is the unix time the token pair was issued.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at"`
	// UpdatedAt is the unix time the row was last refreshed.
	UpdatedAt int64 `json:"updated_at" gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (OAuthCredential) TableName() string {
	return "oauth_credentials"
}

// Expired reports whether the access token lifetime has elapsed.
func (c *OAuthCredential) Expired() bool {
	if c.ExpiresIn == 0 {
		return false
	}
	return time.Now().Unix() > c.CreatedAt+c.ExpiresIn
}
