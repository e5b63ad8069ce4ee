// Package store keeps teams, providers and the active message template in
// two flat files and serves them to the dispatch pipeline as immutable
// snapshots. Every mutation rewrites the file through a temp-file rename and
// swaps in a freshly built snapshot, so an in-flight dispatch always sees a
// consistent configuration, never a half-written one.
package store

import (
	"errors"
	"fmt"

	"github.com/imanbakhtiari/alerting/receivers"
)

// ErrTeamNotFound signals a lookup of a team that does not exist. It is a
// request-level error: dispatch must abort before any delivery is attempted
// and must not fall back to the catch-all team.
var ErrTeamNotFound = errors.New("team not found")

// Snapshot is one immutable view of the configuration. Callers must not
// mutate anything reachable from it.
type Snapshot struct {
	// Teams maps a team name to its ordered SMS recipients. Teams scope
	// SMS delivery only; webhook providers are global.
	Teams map[string][]receivers.Recipient
	// TeamOrder preserves the section order of the numbers file.
	TeamOrder []string
	// Providers holds every outbound endpoint, kind already assigned.
	Providers []receivers.Provider
	// Template is the active message template, empty when unconfigured.
	Template string
}

// ResolveTeam returns the recipients of the named team. A team with zero
// recipients is a valid empty result; an unknown name is ErrTeamNotFound.
func (s *Snapshot) ResolveTeam(name string) ([]receivers.Recipient, error) {
	recipients, ok := s.Teams[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTeamNotFound, name)
	}
	return recipients, nil
}

// SMSProviders returns the providers classified as SMS gateways.
func (s *Snapshot) SMSProviders() []receivers.Provider {
	return s.providersOfKind(receivers.KindSMS)
}

// WebhookProviders returns the providers classified as chat webhooks.
func (s *Snapshot) WebhookProviders() []receivers.Provider {
	return s.providersOfKind(receivers.KindWebhook)
}

func (s *Snapshot) providersOfKind(kind receivers.Kind) []receivers.Provider {
	var out []receivers.Provider
	for _, p := range s.Providers {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}
