package router

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// NewCasbinAuthorizer builds an in-memory RBAC enforcer from policies written
// as "role|object|action". Blank entries are ignored.
func NewCasbinAuthorizer(policies []string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	rules := make([][]string, 0, len(policies))
	for _, p := range policies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		parts := strings.Split(p, "|")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid policy %q: want role|object|action", p)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rules = append(rules, parts)
	}

	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, err
		}
	}

	return e, nil
}
