package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	ConfigFileName = "carrent.json"
	ServerEnv      = "CARRENT_SERVER"
	CookieEnv      = "CARRENT_SESSION_COOKIE"
	DefaultURL     = "http://localhost:8080"
)

// ErrNotFound is returned when no carrent.json exists up the directory tree
var ErrNotFound = errors.New("carrent.json not found")

// Gateway is a CarRent gateway the CLI can talk to
type Gateway struct {
	URL   string `json:"url"`
	Alias string `json:"alias"`
	// Cookie is the gateway's SESSION_COOKIE, when not the default
	Cookie string `json:"cookie,omitempty"`
}

// Config represents the CLI configuration file
type Config struct {
	Gateways []Gateway `json:"gateways"`
}

// FindConfigFile searches for carrent.json in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find carrent.json or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetGatewayByAlias returns a gateway by its alias
func (c *Config) GetGatewayByAlias(alias string) (*Gateway, error) {
	for _, gw := range c.Gateways {
		if gw.Alias == alias {
			return &gw, nil
		}
	}
	return nil, fmt.Errorf("gateway with alias '%s' not found", alias)
}

// GetDefaultGateway returns the first gateway in the list
func (c *Config) GetDefaultGateway() (*Gateway, error) {
	if len(c.Gateways) == 0 {
		return nil, fmt.Errorf("no gateways configured in %s", ConfigFileName)
	}
	return &c.Gateways[0], nil
}

// Resolve picks the gateway to use. selector may be an alias from
// carrent.json or a URL; when empty, CARRENT_SERVER, then the first
// configured gateway, then the local default apply. CARRENT_SESSION_COOKIE
// overrides the cookie name of whichever gateway is picked.
func Resolve(selector string) (*Gateway, error) {
	gw, err := resolve(selector)
	if err != nil {
		return nil, err
	}
	if cookie := os.Getenv(CookieEnv); cookie != "" {
		gw.Cookie = cookie
	}
	return gw, nil
}

func resolve(selector string) (*Gateway, error) {
	if selector == "" {
		selector = os.Getenv(ServerEnv)
	}

	cfg, err := LoadFromCurrentDir()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if selector != "" {
		if looksLikeURL(selector) {
			return normalize(Gateway{URL: selector, Alias: selector})
		}
		if cfg == nil {
			return nil, fmt.Errorf("gateway alias '%s' given but no %s found", selector, ConfigFileName)
		}
		gw, err := cfg.GetGatewayByAlias(selector)
		if err != nil {
			return nil, err
		}
		return normalize(*gw)
	}

	if cfg != nil && len(cfg.Gateways) > 0 {
		gw, _ := cfg.GetDefaultGateway()
		return normalize(*gw)
	}

	return &Gateway{URL: DefaultURL, Alias: "local"}, nil
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func normalize(gw Gateway) (*Gateway, error) {
	if gw.URL == "" {
		return nil, fmt.Errorf("gateway '%s' has an empty URL. Please edit %s", gw.Alias, ConfigFileName)
	}
	u, err := url.Parse(gw.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid gateway URL '%s'", gw.URL)
	}
	gw.URL = strings.TrimRight(gw.URL, "/")
	if gw.Alias == "" {
		gw.Alias = u.Host
	}
	return &gw, nil
}
