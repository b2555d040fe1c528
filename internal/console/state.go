package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"launchpad/internal/models"
	"launchpad/internal/onboarding"
)

// OrganizationStore holds the last-fetched organization data.
type OrganizationStore struct {
	SelectedID int64                                    `json:"selected_organization_id,omitempty"`
	List       []onboarding.OrganizationSummary         `json:"organizations,omitempty"`
	Details    map[int64]*onboarding.OrganizationDetail `json:"details,omitempty"`
}

// UserStore holds the last-fetched rosters, keyed by organization.
type UserStore struct {
	Rosters map[int64][]models.OrganizationUser `json:"rosters,omitempty"`
}

// State is the console's session state. It only pre-populates views; the
// API stays the source of truth, so entries are dropped after every
// mutation and re-read on demand. The zero value is not usable; call
// LoadState or NewState.
type State struct {
	mu   sync.Mutex
	path string

	Token         string            `json:"token,omitempty"`
	Organizations OrganizationStore `json:"organization-store"`
	Users         UserStore         `json:"user-store"`
}

// NewState returns an empty state that saves to path. An empty path keeps
// it in memory only.
func NewState(path string) *State {
	s := &State{path: path}
	s.init()
	return s
}

func (s *State) init() {
	if s.Organizations.Details == nil {
		s.Organizations.Details = map[int64]*onboarding.OrganizationDetail{}
	}
	if s.Users.Rosters == nil {
		s.Users.Rosters = map[int64][]models.OrganizationUser{}
	}
}

// LoadState reads the state file at path. A missing file yields an empty
// state.
func LoadState(path string) (*State, error) {
	s := NewState(path)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	s.init()
	return s, nil
}

// Save writes the state file, replacing it atomically.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *State) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Token = token
}

func (s *State) Select(orgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Organizations.SelectedID = orgID
}

func (s *State) Selected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Organizations.SelectedID
}

func (s *State) organization(id int64) (*onboarding.OrganizationDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.Organizations.Details[id]
	return d, ok
}

func (s *State) putOrganization(d *onboarding.OrganizationDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Organizations.Details[d.OrganizationID] = d
}

func (s *State) setList(items []onboarding.OrganizationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Organizations.List = items
}

func (s *State) roster(orgID int64) ([]models.OrganizationUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, ok := s.Users.Rosters[orgID]
	return users, ok
}

func (s *State) putRoster(orgID int64, users []models.OrganizationUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users.Rosters[orgID] = users
}

// InvalidateOrganization drops the cached detail of orgID and the cached
// list, which shows its stage and documents.
func (s *State) InvalidateOrganization(orgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Organizations.Details, orgID)
	s.Organizations.List = nil
}

func (s *State) InvalidateRoster(orgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Users.Rosters, orgID)
}
