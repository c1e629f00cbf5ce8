package models

import (
	"fmt"
	"sort"
	"strings"
)

// Role is a closed set of authorities a principal can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AllRoles lists every known role in canonical order.
var AllRoles = []Role{RoleUser, RoleAdmin}

// ParseRole maps a wire string to a Role. Unknown values are rejected with
// ErrInvalidRole; a "ROLE_" prefix is tolerated.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_")) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// ParseRoles parses a list of wire strings into a deduplicated, sorted role set.
func ParseRoles(values []string) ([]Role, error) {
	roles := make([]Role, 0, len(values))
	for _, v := range values {
		r, err := ParseRole(v)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return NormalizeRoles(roles), nil
}

// NormalizeRoles removes duplicates and sorts the roles.
func NormalizeRoles(roles []Role) []Role {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleStrings converts roles back to their wire form.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func (r Role) String() string {
	return string(r)
}
