package models

import (
	"strconv"
	"time"
)

// Claims is the decoded payload of a validated token.
type Claims struct {
	Subject   string    `json:"sub"`
	Username  string    `json:"username"`
	Roles     []Role    `json:"roles"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// UserID returns the numeric user id carried in the subject, if any.
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Principal is the identity bound to a single request.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

// NewPrincipal builds a principal from a stored user.
func NewPrincipal(u *User) *Principal {
	return &Principal{
		ID:       u.ID,
		Username: u.Username,
		Roles:    NormalizeRoles(u.Roles),
	}
}

// HasRole reports whether the principal holds r.
func (p *Principal) HasRole(r Role) bool {
	for _, held := range p.Roles {
		if held == r {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyRole(roles []Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}
