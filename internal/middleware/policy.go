package middleware

import (
	"net/http"
	"strings"
)

// Access is the requirement a route places on its caller.
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case AdminOnly:
		return "admin"
	default:
		return "authenticated"
	}
}

// Rule binds a method and route template to an access level. Method "*"
// matches any method. A pattern ending in "/**" matches the prefix and
// everything below it.
type Rule struct {
	Method  string
	Pattern string
	Access  Access
}

func (r Rule) matches(method, route string) bool {
	if r.Method != "*" && r.Method != method {
		return false
	}
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		return route == prefix || strings.HasPrefix(route, prefix+"/")
	}
	return route == r.Pattern
}

// Policy is an ordered rule table; the first matching rule wins.
type Policy struct {
	rules    []Rule
	fallback Access
}

// NewPolicy builds a policy. Routes matching no rule get fallback.
func NewPolicy(fallback Access, rules ...Rule) *Policy {
	return &Policy{rules: rules, fallback: fallback}
}

// Resolve returns the access level for a request.
func (p *Policy) Resolve(method, route string) Access {
	for _, r := range p.rules {
		if r.matches(method, route) {
			return r.Access
		}
	}
	return p.fallback
}

// DefaultPolicy is the route table of the API: auth endpoints are public,
// catalog mutations, user administration, reports and every DELETE need an
// administrator, and everything else needs a valid access token.
func DefaultPolicy() *Policy {
	return NewPolicy(Authenticated,
		Rule{"*", "/health", Public},
		Rule{"*", "/metrics", Public},
		Rule{"*", "/api/auth/**", Public},

		Rule{http.MethodDelete, "/api/**", AdminOnly},

		Rule{"*", "/api/users/**", AdminOnly},
		Rule{http.MethodPost, "/api/products/**", AdminOnly},
		Rule{http.MethodPut, "/api/products/**", AdminOnly},
		Rule{http.MethodPost, "/api/suppliers/**", AdminOnly},
		Rule{http.MethodPut, "/api/suppliers/**", AdminOnly},
		Rule{"*", "/api/reports/**", AdminOnly},
		Rule{"*", "/api/assistant/**", AdminOnly},

		Rule{"*", "/api/**", Authenticated},
	)
}
