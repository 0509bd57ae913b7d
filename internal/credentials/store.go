// Package credentials persists OAuth access grants across process restarts.
//
// All profiles share a single JSON document keyed by profile id. Each save is
// a read-modify-write of the whole document so one profile's update never
// disturbs another's entry. The file is owner-only (0600); concurrent writers
// from independent processes are not defended against.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Record is one persisted access grant. A record is only usable when its
// Environment matches the requesting profile's configured environment; a
// mismatch is treated identically to absence.
type Record struct {
	OAuthToken       string    `json:"oauth_token"`
	OAuthTokenSecret string    `json:"oauth_token_secret"`
	ExpiresAt        time.Time `json:"expires_at"`
	Environment      string    `json:"environment"`
}

// rawRecord defers expires_at parsing so a malformed timestamp degrades to
// "no usable record" instead of failing the whole document.
type rawRecord struct {
	OAuthToken       string `json:"oauth_token"`
	OAuthTokenSecret string `json:"oauth_token_secret"`
	ExpiresAt        string `json:"expires_at"`
	Environment      string `json:"environment"`
}

// Store reads and writes the shared token document. The path is resolved
// once at construction.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save replaces the entry for profileID, leaving all other entries intact.
// Write failures propagate to the caller and fail the authorization attempt.
func (s *Store) Save(profileID string, rec Record) error {
	all := map[string]rawRecord{}

	b, err := os.ReadFile(s.path)
	if err == nil {
		if err := json.Unmarshal(b, &all); err != nil {
			return fmt.Errorf("failed to parse tokens file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read tokens file: %w", err)
	}

	all[profileID] = rawRecord{
		OAuthToken:       rec.OAuthToken,
		OAuthTokenSecret: rec.OAuthTokenSecret,
		ExpiresAt:        rec.ExpiresAt.Format(time.RFC3339),
		Environment:      rec.Environment,
	}

	out, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	if err := ensureParentDir(s.path); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, out, 0600); err != nil {
		return fmt.Errorf("failed to write tokens file: %w", err)
	}
	// WriteFile only applies the mode on creation; keep rewrites owner-only.
	if err := os.Chmod(s.path, 0600); err != nil {
		return fmt.Errorf("failed to restrict tokens file permissions: %w", err)
	}
	return nil
}

// Load returns the stored record for profileID, or nil when no usable record
// exists: missing file, missing profile entry, missing or malformed fields,
// or an environment mismatch. Only a structurally invalid document is an
// error.
func (s *Store) Load(profileID, environment string) (*Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}

	all := map[string]rawRecord{}
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("failed to parse tokens file: %w", err)
	}

	raw, ok := all[profileID]
	if !ok {
		return nil, nil
	}
	if raw.Environment != environment {
		return nil, nil
	}
	if raw.OAuthToken == "" || raw.OAuthTokenSecret == "" || raw.ExpiresAt == "" {
		return nil, nil
	}

	expiresAt, err := time.Parse(time.RFC3339, raw.ExpiresAt)
	if err != nil {
		return nil, nil
	}

	return &Record{
		OAuthToken:       raw.OAuthToken,
		OAuthTokenSecret: raw.OAuthTokenSecret,
		ExpiresAt:        expiresAt,
		Environment:      raw.Environment,
	}, nil
}
