package security

import (
	"testing"

	"github.com/feedloop/securenotes/internal/config"
	"github.com/feedloop/securenotes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userPrincipal  = &models.Principal{ID: 1, Username: "alice", Roles: []models.Role{models.RoleUser}}
	adminPrincipal = &models.Principal{ID: 2, Username: "root", Roles: []models.Role{models.RoleAdmin}}
	noRoles        = &models.Principal{ID: 3, Username: "nobody", Roles: []models.Role{}}
)

func TestDefaultGate(t *testing.T) {
	gate := NewGate(DefaultRules())

	tests := []struct {
		name      string
		method    string
		path      string
		principal *models.Principal
		want      Outcome
	}{
		{"login is public", "POST", "/api/auth/login", nil, Allow},
		{"public info anonymous", "GET", "/api/public/app-info", nil, Allow},
		{"docs anonymous", "GET", "/v3/api-docs", nil, Allow},
		{"swagger ui anonymous", "GET", "/swagger-ui/index.html", nil, Allow},
		{"health anonymous", "GET", "/health", nil, Allow},
		{"user area as user", "GET", "/api/user/hello", userPrincipal, Allow},
		{"user area as admin", "GET", "/api/user/hello", adminPrincipal, Allow},
		{"user area anonymous", "GET", "/api/user/hello", nil, Unauthenticated},
		{"user area without roles", "GET", "/api/user/hello", noRoles, Forbidden},
		{"admin area as user", "GET", "/api/admin/hello", userPrincipal, Forbidden},
		{"admin area as admin", "DELETE", "/api/admin/users/4", adminPrincipal, Allow},
		{"admin area anonymous", "GET", "/api/admin/hello", nil, Unauthenticated},
		{"default needs identity", "GET", "/api/notes", nil, Unauthenticated},
		{"default any role", "GET", "/api/notes", noRoles, Allow},
		{"dot segments are cleaned", "GET", "/api/public/../admin/users", nil, Unauthenticated},
		{"trailing slash", "GET", "/api/admin/users/", userPrincipal, Forbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Evaluate(tt.method, tt.path, tt.principal)
			assert.Equal(t, tt.want, d.Outcome, d.Outcome.String())
		})
	}
}

func TestRoleScopedRulesNeverForbidAnonymous(t *testing.T) {
	gate := NewGate(DefaultRules())
	for _, rule := range gate.Rules() {
		if rule.Public || len(rule.Roles) == 0 {
			continue
		}
		p := rule.Pattern[:len(rule.Pattern)-len("**")] + "anything"
		assert.Equal(t, Unauthenticated, gate.Evaluate("GET", p, nil).Outcome, p)
	}
}

func TestFirstMatchWins(t *testing.T) {
	gate := NewGate([]Rule{
		{Pattern: "/api/admin/hello", Public: true},
		{Pattern: "/api/admin/**", Roles: []models.Role{models.RoleAdmin}},
	})

	d := gate.Evaluate("GET", "/api/admin/hello", nil)
	assert.True(t, d.Allowed())
	require.NotNil(t, d.Rule)
	assert.Equal(t, "/api/admin/hello", d.Rule.Pattern)

	assert.Equal(t, Unauthenticated, gate.Evaluate("GET", "/api/admin/users", nil).Outcome)
}

func TestMethodScopedRule(t *testing.T) {
	gate := NewGate([]Rule{
		{Pattern: "/api/notes/**", Methods: []string{"delete"}, Roles: []models.Role{models.RoleAdmin}},
	})

	assert.Equal(t, Forbidden, gate.Evaluate("DELETE", "/api/notes/1", userPrincipal).Outcome)

	d := gate.Evaluate("GET", "/api/notes/1", userPrincipal)
	assert.True(t, d.Allowed())
	assert.Nil(t, d.Rule)
}

func TestRulesFromConfig(t *testing.T) {
	rules, err := RulesFromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)

	rules, err = RulesFromConfig([]config.RuleConfig{
		{Pattern: "/reports/**", Roles: []string{"USER", "ROLE_ADMIN", "user"}},
	})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleUser}, rules[0].Roles)

	_, err = RulesFromConfig([]config.RuleConfig{{Pattern: "/x/**", Roles: []string{"ROOT"}}})
	assert.ErrorIs(t, err, models.ErrInvalidRole)
}
