// Package registry maps profile ids to their lifecycle managers and data
// clients. The profile set is fixed at construction; entries are never added
// or removed while the process runs.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvcrn/etrade-mcp/internal/auth"
	"github.com/dvcrn/etrade-mcp/internal/config"
	"github.com/dvcrn/etrade-mcp/internal/credentials"
	"github.com/dvcrn/etrade-mcp/internal/etrade"
)

// Entry bundles one profile's configuration, lifecycle manager and data
// client. Distinct entries are fully independent and may authorize
// concurrently; same-profile serialization lives inside the manager.
type Entry struct {
	Profile config.Profile
	Manager *auth.Manager
	Client  *etrade.Client
}

type Registry struct {
	entries map[string]*Entry
}

// New builds the registry from the validated profile list. All profiles
// share one credential store; each gets its own transport and manager.
func New(profiles []config.Profile, store *credentials.Store, log zerolog.Logger, opts ...auth.Option) *Registry {
	entries := make(map[string]*Entry, len(profiles))
	for _, profile := range profiles {
		transport := auth.NewTransport(profile.ConsumerKey, profile.ConsumerSecret, auth.DefaultEndpoints())
		verifier := auth.NewVerifierSource(!profile.NoBrowser, log)
		manager := auth.NewManager(profile.ID, string(profile.Environment), transport, store, verifier, log, opts...)

		entries[profile.ID] = &Entry{
			Profile: profile,
			Manager: manager,
			Client:  etrade.NewClient(profile, manager, log),
		}
	}
	return &Registry{entries: entries}
}

// Get returns the entry for a profile id. The not-found error names the
// available profiles so a caller can correct the request.
func (r *Registry) Get(profileID string) (*Entry, error) {
	entry, ok := r.entries[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s not found, available profiles: %s", profileID, strings.Join(r.ProfileIDs(), ", "))
	}
	return entry, nil
}

// ProfileIDs returns all configured profile ids in sorted order.
func (r *Registry) ProfileIDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns all entries ordered by profile id.
func (r *Registry) Entries() []*Entry {
	ids := r.ProfileIDs()
	out := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.entries[id])
	}
	return out
}
