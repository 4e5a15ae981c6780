package store

import (
	"sort"
	"sync"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a mutex-guarded store used in tests and DSN-less runs.
type InMemoryStore struct {
	mu       sync.Mutex
	outcomes []models.RedemptionOutcome
	players  map[string]models.RegisteredPlayer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{players: make(map[string]models.RegisteredPlayer)}
}

func (s *InMemoryStore) FindExisting(playerID, code string) (*models.RedemptionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.outcomes) - 1; i >= 0; i-- {
		o := s.outcomes[i]
		if o.PlayerID == playerID && o.Code == code && o.Kind.Redeemed() {
			return &o, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) RedeemedSet(code string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{})
	for _, o := range s.outcomes {
		if o.Code == code && o.Kind.Redeemed() {
			set[o.PlayerID] = struct{}{}
		}
	}
	return set, nil
}

func (s *InMemoryStore) Append(outcome models.RedemptionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

func (s *InMemoryStore) AddPlayer(p models.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.players[p.PlayerID]; ok {
		existing.Enabled = p.Enabled
		existing.AddedBy = p.AddedBy
		if p.PlayerName != "" {
			existing.PlayerName = p.PlayerName
		}
		existing.UpdatedAt = now
		s.players[p.PlayerID] = existing
		return nil
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	s.players[p.PlayerID] = p
	return nil
}

func (s *InMemoryStore) GetPlayer(playerID string) (*models.RegisteredPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *InMemoryStore) RemovePlayer(playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; !ok {
		return false, nil
	}
	delete(s.players, playerID)
	return true, nil
}

func (s *InMemoryStore) TogglePlayer(playerID string) (*bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, nil
	}
	p.Enabled = !p.Enabled
	p.UpdatedAt = time.Now().UTC()
	s.players[playerID] = p
	return &p.Enabled, nil
}

func (s *InMemoryStore) ListPlayers(enabledOnly bool) ([]models.RegisteredPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := make([]models.RegisteredPlayer, 0, len(s.players))
	for _, p := range s.players {
		if enabledOnly && !p.Enabled {
			continue
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].PlayerID < players[j].PlayerID })
	return players, nil
}

func (s *InMemoryStore) Close() error { return nil }
