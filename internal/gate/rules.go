package gate

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carrent-dev/carrent/internal/auth"
)

// Class is the access class of a request path. Higher values are more
// restrictive.
type Class int

const (
	Public Class = iota
	Authenticated
	AdminOnly
)

func (c Class) String() string {
	switch c {
	case Public:
		return "PUBLIC"
	case Authenticated:
		return "AUTHENTICATED"
	case AdminOnly:
		return "ADMIN_ONLY"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Class) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "PUBLIC":
		*c = Public
	case "AUTHENTICATED":
		*c = Authenticated
	case "ADMIN_ONLY":
		*c = AdminOnly
	default:
		return fmt.Errorf("unknown route class %q", string(text))
	}
	return nil
}

// Rule assigns a class to a protected root and everything beneath it.
// Roles are a closed set, so a class is enough; a per-rule capability set
// replaces it if roles ever stop being exclusive.
type Rule struct {
	Prefix string `yaml:"prefix"`
	Class  Class  `yaml:"class"`
	// AuthEntry marks login/register surfaces that bounce signed-in users
	// to their default route.
	AuthEntry bool `yaml:"auth_entry"`
}

// matches reports whether p equals the rule prefix or lies beneath it.
// Both sides are already cleaned and lower-cased.
func (r Rule) matches(p string) bool {
	if r.Prefix == "/" {
		return true
	}
	if p == r.Prefix {
		return true
	}
	return strings.HasPrefix(p, r.Prefix+"/")
}

// Targets are the well-known redirect destinations
type Targets struct {
	Login        string               `yaml:"login"`
	Unauthorized string               `yaml:"unauthorized"`
	Defaults     map[auth.Role]string `yaml:"defaults"`
}

// Config is the full route table
type Config struct {
	Rules   []Rule  `yaml:"rules"`
	Targets Targets `yaml:"targets"`
}

// DefaultConfig returns the route table of the booking site
func DefaultConfig() Config {
	return Config{
		Rules: []Rule{
			{Prefix: "/admin", Class: AdminOnly},
			{Prefix: "/dashboard", Class: Authenticated},
			{Prefix: "/auth", Class: Public, AuthEntry: true},
			{Prefix: "/api/backend", Class: Authenticated},
		},
		Targets: defaultTargets(),
	}
}

func defaultTargets() Targets {
	return Targets{
		Login:        "/auth/login",
		Unauthorized: "/unauthorized",
		Defaults: map[auth.Role]string{
			auth.RoleAdmin: "/admin",
			auth.RoleUser:  "/",
		},
	}
}

// LoadConfig reads a YAML route table. Rules in the file replace the
// defaults; missing targets fall back to the defaults.
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read route config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML route table
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse route config: %w", err)
	}

	def := DefaultConfig()
	if cfg.Rules == nil {
		cfg.Rules = def.Rules
	}
	if cfg.Targets.Login == "" {
		cfg.Targets.Login = def.Targets.Login
	}
	if cfg.Targets.Unauthorized == "" {
		cfg.Targets.Unauthorized = def.Targets.Unauthorized
	}
	if cfg.Targets.Defaults == nil {
		cfg.Targets.Defaults = map[auth.Role]string{}
	}
	for role, target := range def.Targets.Defaults {
		if _, ok := cfg.Targets.Defaults[role]; !ok {
			cfg.Targets.Defaults[role] = target
		}
	}

	return cfg, nil
}

// normalizePath cleans p for matching. It reports false for values that
// are not absolute request paths.
func normalizePath(p string) (string, bool) {
	if p == "" || p[0] != '/' || strings.ContainsRune(p, 0) {
		return "", false
	}
	return strings.ToLower(path.Clean(p)), true
}

func validateConfig(cfg Config) error {
	for i, r := range cfg.Rules {
		clean, ok := normalizePath(r.Prefix)
		if !ok || clean != r.Prefix {
			return fmt.Errorf("rule %d: prefix %q must be a clean, lower-case absolute path", i, r.Prefix)
		}
		if r.Class < Public || r.Class > AdminOnly {
			return fmt.Errorf("rule %d: invalid class %d", i, int(r.Class))
		}
	}

	targets := map[string]string{
		"login":        cfg.Targets.Login,
		"unauthorized": cfg.Targets.Unauthorized,
	}
	for role, target := range cfg.Targets.Defaults {
		if !role.Valid() {
			return fmt.Errorf("default route for unknown role %q", role)
		}
		targets["default "+string(role)] = target
	}
	for name, target := range targets {
		if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
			return fmt.Errorf("%s target %q must be a local absolute path", name, target)
		}
	}
	for _, role := range []auth.Role{auth.RoleUser, auth.RoleAdmin} {
		if _, ok := cfg.Targets.Defaults[role]; !ok {
			return fmt.Errorf("missing default route for role %s", role)
		}
	}
	return nil
}
