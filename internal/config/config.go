// Package config builds the fixed, validated set of E*TRADE profiles the
// process runs with. Profiles are read from the environment exactly once at
// startup; nothing in this package is consulted again afterwards.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Environment selects the E*TRADE credential space. Sandbox and production
// grants are disjoint; a token issued in one is meaningless in the other.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// ParseEnvironment validates an environment name. An empty name defaults to
// sandbox; anything else unknown is a configuration error.
func ParseEnvironment(name string) (Environment, error) {
	switch name {
	case "":
		return Sandbox, nil
	case string(Sandbox):
		return Sandbox, nil
	case string(Production):
		return Production, nil
	default:
		return "", fmt.Errorf("invalid environment: %q (expected %q or %q)", name, Sandbox, Production)
	}
}

// BaseURL returns the API base for this environment.
func (e Environment) BaseURL() string {
	if e == Production {
		return "https://api.etrade.com"
	}
	return "https://apisb.etrade.com"
}

// Profile is one independent set of consumer credentials. Constructed at
// startup, never mutated.
type Profile struct {
	ID             string
	Label          string
	ConsumerKey    string
	ConsumerSecret string
	Environment    Environment

	// NoBrowser suppresses automatic browser opening during authorization.
	NoBrowser bool
}

// Validate reports the first construction-time error, if any.
func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.ConsumerKey == "" {
		return fmt.Errorf("profile %s: consumer key is required", p.ID)
	}
	if p.ConsumerSecret == "" {
		return fmt.Errorf("profile %s: consumer secret is required", p.ID)
	}
	if _, err := ParseEnvironment(string(p.Environment)); err != nil {
		return fmt.Errorf("profile %s: %w", p.ID, err)
	}
	return nil
}

const envPrefix = "ETRADE_"

// FromEnv reads all configured profiles from the environment.
//
// Per-profile variables, where <id> is the profile id:
//
//	ETRADE_<id>_CONSUMER_KEY     (required)
//	ETRADE_<id>_CONSUMER_SECRET  (required)
//	ETRADE_<id>_ENVIRONMENT      (optional, default sandbox)
//	ETRADE_<id>_LABEL            (optional)
//	ETRADE_<id>_NO_BROWSER       (optional, any non-empty value)
//
// The unnumbered legacy names ETRADE_CONSUMER_KEY, ETRADE_CONSUMER_SECRET and
// ETRADE_ENVIRONMENT are accepted as fallbacks for profile "0".
func FromEnv() ([]Profile, error) {
	ids := map[string]bool{}

	if os.Getenv("ETRADE_CONSUMER_KEY") != "" || os.Getenv("ETRADE_0_CONSUMER_KEY") != "" {
		ids["0"] = true
	}

	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		rest, found := strings.CutSuffix(strings.TrimPrefix(name, envPrefix), "_CONSUMER_KEY")
		if !found || rest == "" {
			continue
		}
		if isProfileID(rest) {
			ids[rest] = true
		}
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("no E*TRADE profiles found in environment: set ETRADE_0_CONSUMER_KEY and ETRADE_0_CONSUMER_SECRET at minimum")
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	profiles := make([]Profile, 0, len(sorted))
	for _, id := range sorted {
		p, err := profileFromEnv(id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func profileFromEnv(id string) (Profile, error) {
	key := os.Getenv(envPrefix + id + "_CONSUMER_KEY")
	secret := os.Getenv(envPrefix + id + "_CONSUMER_SECRET")
	envName := os.Getenv(envPrefix + id + "_ENVIRONMENT")
	label := os.Getenv(envPrefix + id + "_LABEL")
	noBrowser := os.Getenv(envPrefix+id+"_NO_BROWSER") != ""

	// Legacy unnumbered variables apply to profile 0 only.
	if id == "0" {
		if key == "" {
			key = os.Getenv("ETRADE_CONSUMER_KEY")
		}
		if secret == "" {
			secret = os.Getenv("ETRADE_CONSUMER_SECRET")
		}
		if envName == "" {
			envName = os.Getenv("ETRADE_ENVIRONMENT")
		}
	}

	environment, err := ParseEnvironment(envName)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", id, err)
	}

	p := Profile{
		ID:             id,
		Label:          label,
		ConsumerKey:    key,
		ConsumerSecret: secret,
		Environment:    environment,
		NoBrowser:      noBrowser,
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// isProfileID rejects env var names like ETRADE_SOMETHING_ELSE_CONSUMER_KEY
// that are not numbered profiles.
func isProfileID(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
