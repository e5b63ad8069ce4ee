package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/imanbakhtiari/alerting/receivers"
)

const (
	numbersFile  = "numbers.txt"
	templateFile = "template.txt"
)

// defaultTeams seeds a fresh numbers file. "all" is special: every recipient
// added to any team is added there too.
var defaultTeams = []string{"all", "devops", "cloud", "web", "noc", "managers"}

// ErrRecipientExists is returned when a number is already present in a team.
var ErrRecipientExists = errors.New("recipient already exists")

// Store owns the flat files and the current Snapshot.
type Store struct {
	numbersPath  string
	templatePath string
	logger       log.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// Open loads the store from dir, seeding a default numbers file when none
// exists yet.
func Open(dir string, logger log.Logger) (*Store, error) {
	s := &Store{
		numbersPath:  filepath.Join(dir, numbersFile),
		templatePath: filepath.Join(dir, templateFile),
		logger:       logger,
	}

	if _, err := os.Stat(s.numbersPath); os.IsNotExist(err) {
		var b strings.Builder
		for _, team := range defaultTeams {
			fmt.Fprintf(&b, "[%s]\n\n", team)
		}
		fmt.Fprintf(&b, "[%s]\n", providerSection)
		if err := writeFileAtomic(s.numbersPath, []byte(b.String())); err != nil {
			return nil, fmt.Errorf("failed to seed numbers file: %w", err)
		}
		level.Info(logger).Log("msg", "seeded numbers file", "path", s.numbersPath)
	} else if err != nil {
		return nil, err
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the current configuration snapshot. The returned value is
// shared and must be treated as read-only.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload re-reads both files and swaps in a new snapshot. Used at startup
// and whenever the files change out-of-band.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.numbersPath)
	if err != nil {
		return fmt.Errorf("failed to read numbers file: %w", err)
	}
	teams, order, providers := parseNumbers(string(raw))

	tmpl := ""
	if rawTmpl, err := os.ReadFile(s.templatePath); err == nil {
		tmpl = strings.TrimSpace(string(rawTmpl))
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read template file: %w", err)
	}

	s.mu.Lock()
	s.snap = &Snapshot{Teams: teams, TeamOrder: order, Providers: providers, Template: tmpl}
	s.mu.Unlock()
	return nil
}

// AddRecipient adds a number to a team and, when the team is not the
// catch-all itself, to the "all" team as well. Duplicate numbers within a
// team are rejected.
func (s *Store) AddRecipient(team string, r receivers.Recipient) error {
	return s.mutate(func(snap *Snapshot) error {
		if _, ok := snap.Teams[team]; !ok {
			return fmt.Errorf("%w: %q", ErrTeamNotFound, team)
		}
		if hasNumber(snap.Teams[team], r.Number) {
			return fmt.Errorf("%w: %s in %q", ErrRecipientExists, r.Number, team)
		}
		snap.Teams[team] = append(snap.Teams[team], r)
		if all, ok := snap.Teams["all"]; ok && team != "all" && !hasNumber(all, r.Number) {
			snap.Teams["all"] = append(all, r)
		}
		return nil
	})
}

// RemoveRecipient removes a number from one team only. Removing an unknown
// number is a no-op.
func (s *Store) RemoveRecipient(team, number string) error {
	return s.mutate(func(snap *Snapshot) error {
		recipients, ok := snap.Teams[team]
		if !ok {
			return fmt.Errorf("%w: %q", ErrTeamNotFound, team)
		}
		kept := recipients[:0:0]
		for _, r := range recipients {
			if r.Number != number {
				kept = append(kept, r)
			}
		}
		snap.Teams[team] = kept
		return nil
	})
}

// AddProvider registers an outbound endpoint, classifying its kind from the
// URL. Re-adding an existing URL is a no-op.
func (s *Store) AddProvider(rawURL string, headers map[string]string) (receivers.Provider, error) {
	p := receivers.NewProvider(rawURL, headers)
	err := s.mutate(func(snap *Snapshot) error {
		for _, existing := range snap.Providers {
			if existing.URL == p.URL {
				return nil
			}
		}
		snap.Providers = append(snap.Providers, p)
		return nil
	})
	return p, err
}

// RemoveProvider deletes the provider at the given position in the list.
func (s *Store) RemoveProvider(index int) error {
	return s.mutate(func(snap *Snapshot) error {
		if index < 0 || index >= len(snap.Providers) {
			return fmt.Errorf("provider index %d out of range", index)
		}
		snap.Providers = append(snap.Providers[:index], snap.Providers[index+1:]...)
		return nil
	})
}

// SetTemplate replaces the active template. An empty template clears the
// file so the built-in default applies again.
func (s *Store) SetTemplate(tmpl string) error {
	tmpl = strings.TrimSpace(tmpl)
	if tmpl == "" {
		if err := os.Remove(s.templatePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove template file: %w", err)
		}
	} else {
		if err := writeFileAtomic(s.templatePath, []byte(tmpl)); err != nil {
			return fmt.Errorf("failed to write template file: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap.clone()
	snap.Template = tmpl
	s.snap = snap
	return nil
}

// mutate applies fn to a deep copy of the current snapshot, persists the
// result atomically and only then swaps it in. A failed write leaves both
// the file and the served snapshot untouched.
func (s *Store) mutate(fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	if err := fn(next); err != nil {
		return err
	}

	content := renderNumbers(next.Teams, next.TeamOrder, next.Providers)
	if err := writeFileAtomic(s.numbersPath, []byte(content)); err != nil {
		return fmt.Errorf("failed to write numbers file: %w", err)
	}

	s.snap = next
	return nil
}

func (s *Snapshot) clone() *Snapshot {
	teams := make(map[string][]receivers.Recipient, len(s.Teams))
	for name, recipients := range s.Teams {
		teams[name] = append([]receivers.Recipient(nil), recipients...)
	}
	return &Snapshot{
		Teams:     teams,
		TeamOrder: append([]string(nil), s.TeamOrder...),
		Providers: append([]receivers.Provider(nil), s.Providers...),
		Template:  s.Template,
	}
}

func hasNumber(recipients []receivers.Recipient, number string) bool {
	for _, r := range recipients {
		if r.Number == number {
			return true
		}
	}
	return false
}

// writeFileAtomic writes via a temp file in the same directory followed by a
// rename, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
