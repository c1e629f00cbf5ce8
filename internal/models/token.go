package models

import "time"

// TokenType represents the type of token handed to clients
type TokenType string

const (
	TokenTypeBearer TokenType = "Bearer"
)

// TestTokenRequest asks for a token minted without a password check.
// Only served when test tokens are enabled.
type TestTokenRequest struct {
	Username string   `json:"username" binding:"required"`
	Roles    []string `json:"roles" binding:"required,min=1"`
}

// TokenResponse is returned by login and the test token endpoint
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType TokenType `json:"token_type"`
	Username  string    `json:"username"`
	Roles     []Role    `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}
