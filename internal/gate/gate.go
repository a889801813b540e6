// Package gate decides whether a request may proceed, must be redirected,
// or is rejected, from the request path and the caller's session claims.
//
// Decisions are pure: the gate reads claims, never mutates them, and leaves
// enforcement to the HTTP layer.
package gate

import (
	"fmt"
	"time"

	"github.com/carrent-dev/carrent/internal/auth"
)

// Kind is the outcome of an authorization decision
type Kind int

const (
	Allow Kind = iota
	Redirect
	Deny
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Reason explains why a request was not simply allowed
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
	ReasonSignedIn        Reason = "signed_in"
	ReasonMalformedPath   Reason = "malformed_path"
)

// Decision is the gate's verdict for one request
type Decision struct {
	Kind     Kind
	Location string
	Reason   Reason
	Class    Class
}

func allow(class Class) Decision {
	return Decision{Kind: Allow, Class: class}
}

func redirectTo(location string, reason Reason, class Class) Decision {
	return Decision{Kind: Redirect, Location: location, Reason: reason, Class: class}
}

// Gate evaluates requests against a route table. It holds no mutable state
// and is safe for concurrent use.
type Gate struct {
	rules   []Rule
	targets Targets
}

// New builds a gate from a route table
func New(cfg Config) (*Gate, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	rules := make([]Rule, len(cfg.Rules))
	copy(rules, cfg.Rules)

	defaults := make(map[auth.Role]string, len(cfg.Targets.Defaults))
	for role, target := range cfg.Targets.Defaults {
		defaults[role] = target
	}

	return &Gate{
		rules: rules,
		targets: Targets{
			Login:        cfg.Targets.Login,
			Unauthorized: cfg.Targets.Unauthorized,
			Defaults:     defaults,
		},
	}, nil
}

// Classify maps a path to its access class. The most restrictive matching
// rule wins; paths under no rule are Public. ok is false for paths that
// cannot be normalised.
func (g *Gate) Classify(p string) (class Class, authEntry bool, ok bool) {
	clean, ok := normalizePath(p)
	if !ok {
		return AdminOnly, false, false
	}

	class = Public
	for _, r := range g.rules {
		if !r.matches(clean) {
			continue
		}
		if r.Class > class {
			class = r.Class
		}
		if r.AuthEntry {
			authEntry = true
		}
	}
	return class, authEntry && class == Public, true
}

// Authorize decides what happens to a request for p made with claims.
// A nil or expired claims value is treated as anonymous.
func (g *Gate) Authorize(p string, claims *auth.Claims, now time.Time) Decision {
	class, authEntry, ok := g.Classify(p)
	if !ok {
		return Decision{Kind: Deny, Reason: ReasonMalformedPath, Class: class}
	}

	signedIn := claims.Valid(now)

	switch class {
	case Public:
		if authEntry && signedIn {
			return redirectTo(g.DefaultRoute(claims.Role), ReasonSignedIn, class)
		}
		return allow(class)

	case Authenticated:
		if !signedIn {
			return redirectTo(g.targets.Login, ReasonUnauthenticated, class)
		}
		return allow(class)

	case AdminOnly:
		if !signedIn {
			return redirectTo(g.targets.Login, ReasonUnauthenticated, class)
		}
		if claims.Role != auth.RoleAdmin {
			return redirectTo(g.targets.Unauthorized, ReasonForbidden, class)
		}
		return allow(class)
	}

	return Decision{Kind: Deny, Reason: ReasonMalformedPath, Class: class}
}

// DefaultRoute is where a signed-in user of the given role lands
func (g *Gate) DefaultRoute(role auth.Role) string {
	if target, ok := g.targets.Defaults[role]; ok {
		return target
	}
	return "/"
}

// LoginPath returns the login surface
func (g *Gate) LoginPath() string {
	return g.targets.Login
}

// UnauthorizedPath returns the page shown to signed-in users lacking a role
func (g *Gate) UnauthorizedPath() string {
	return g.targets.Unauthorized
}
