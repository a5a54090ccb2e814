// Package profile stores player profiles: a username plus optional JVM
// arguments, persisted as a pretty-printed JSON array in profiles.json.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
)

var (
	// ErrProfileNotFound is returned when no profile has the given username.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists is returned when adding a username that is taken.
	ErrProfileExists = errors.New("profile already exists")
)

// Profile is one player profile.
type Profile struct {
	Username string  `json:"username"`
	JVMArgs  *string `json:"jvm_args"`
}

// New returns a profile. Blank jvmArgs means the launcher defaults.
func New(username, jvmArgs string) Profile {
	p := Profile{Username: username}
	if strings.TrimSpace(jvmArgs) != "" {
		p.JVMArgs = &jvmArgs
	}
	return p
}

// Args returns the JVM argument string, empty when unset.
func (p Profile) Args() string {
	if p.JVMArgs == nil {
		return ""
	}
	return *p.JVMArgs
}

// Validate checks the username.
func (p Profile) Validate() error {
	return errs.ValidateUsername(p.Username)
}

// Store is a file-backed profile list. It is safe for concurrent use; every
// mutation is written through to disk.
type Store struct {
	mu       sync.RWMutex
	path     string
	profiles []Profile
}

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load re-reads the backing file.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.profiles = nil
			return nil
		}
		return fmt.Errorf("read profiles: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidProfile, err, "parse %s", s.path)
	}
	s.profiles = profiles
	return nil
}

// Save writes the current list to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

func (s *Store) save() error {
	profiles := s.profiles
	if profiles == nil {
		profiles = []Profile{}
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".profiles-*.tmp")
	if err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

// List returns a copy of all profiles in insertion order.
func (s *Store) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.profiles)
}

// Get returns the profile with the given username.
func (s *Store) Get(username string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(username)
	if i < 0 {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}
	return s.profiles[i], nil
}

// Add appends p and saves.
func (s *Store) Add(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(p.Username) >= 0 {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Username)
	}
	s.profiles = append(s.profiles, p)
	return s.save()
}

// Update replaces the profile named username with p, keeping its position.
// A rename to a username held by another profile is rejected.
func (s *Store) Update(username string, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}
	if j := s.index(p.Username); j >= 0 && j != i {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Username)
	}
	s.profiles[i] = p
	return s.save()
}

// Remove deletes the profile named username and saves.
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}
	s.profiles = slices.Delete(s.profiles, i, i+1)
	return s.save()
}

func (s *Store) index(username string) int {
	return slices.IndexFunc(s.profiles, func(p Profile) bool { return p.Username == username })
}
