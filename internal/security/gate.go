package security

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/feedloop/securenotes/internal/config"
	"github.com/feedloop/securenotes/internal/models"
)

// Rule maps a path pattern, optionally narrowed to some methods, to an
// access requirement. Public rules allow anonymous access; otherwise a
// principal is required and, when Roles is non-empty, must hold one of them.
type Rule struct {
	Pattern string
	Methods []string
	Roles   []models.Role
	Public  bool
}

func (r Rule) matches(method, p string) bool {
	if len(r.Methods) > 0 {
		found := false
		for _, m := range r.Methods {
			if strings.EqualFold(m, method) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	ok, err := doublestar.Match(r.Pattern, p)
	return err == nil && ok
}

type Outcome int

const (
	Allow Outcome = iota
	Unauthenticated
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Decision is the gate's verdict. Rule is nil when no rule matched and the
// default applied.
type Decision struct {
	Outcome Outcome
	Rule    *Rule
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Gate evaluates an ordered rule table; the first matching rule wins and
// unmatched requests require any authenticated principal.
type Gate struct {
	rules []Rule
}

func NewGate(rules []Rule) *Gate {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Gate{rules: copied}
}

func (g *Gate) Rules() []Rule {
	out := make([]Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

func (g *Gate) Evaluate(method, requestPath string, p *models.Principal) Decision {
	cleaned := path.Clean("/" + requestPath)

	for i := range g.rules {
		rule := &g.rules[i]
		if !rule.matches(method, cleaned) {
			continue
		}
		if rule.Public {
			return Decision{Outcome: Allow, Rule: rule}
		}
		return Decision{Outcome: outcomeFor(p, rule.Roles), Rule: rule}
	}
	return Decision{Outcome: outcomeFor(p, nil)}
}

func outcomeFor(p *models.Principal, roles []models.Role) Outcome {
	if p == nil {
		return Unauthenticated
	}
	if len(roles) > 0 && !p.HasAnyRole(roles) {
		return Forbidden
	}
	return Allow
}

// DocumentationPaths are the introspection endpoints skipped by the
// authentication filter and open to everyone.
var DocumentationPaths = []string{"/v3/api-docs", "/v3/api-docs/**", "/swagger-ui/**", "/swagger-ui.html"}

// DefaultRules is the built-in access table.
func DefaultRules() []Rule {
	rules := []Rule{
		{Pattern: "/api/auth/**", Public: true},
		{Pattern: "/api/public/**", Public: true},
	}
	for _, p := range DocumentationPaths {
		rules = append(rules, Rule{Pattern: p, Public: true})
	}
	return append(rules,
		Rule{Pattern: "/health", Public: true},
		Rule{Pattern: "/status", Public: true},
		Rule{Pattern: "/api/user/**", Roles: []models.Role{models.RoleUser, models.RoleAdmin}},
		Rule{Pattern: "/api/admin/**", Roles: []models.Role{models.RoleAdmin}},
	)
}

// RulesFromConfig converts configured rules. An empty table selects DefaultRules.
func RulesFromConfig(cfg []config.RuleConfig) ([]Rule, error) {
	if len(cfg) == 0 {
		return DefaultRules(), nil
	}
	rules := make([]Rule, 0, len(cfg))
	for i, rc := range cfg {
		roles, err := rc.ParseRoles()
		if err != nil {
			return nil, fmt.Errorf("authorization rule %d (%s): %w", i, rc.Pattern, err)
		}
		rules = append(rules, Rule{
			Pattern: rc.Pattern,
			Methods: rc.Methods,
			Roles:   roles,
			Public:  rc.Public,
		})
	}
	return rules, nil
}
