// Package schedule holds pending timed role-ping notifications.
//
// The store is deliberately in-memory only: scheduled pings are low-stakes
// and do not survive a restart, unlike the durable redemption ledger.
package schedule

import (
	"sort"
	"sync"
	"time"

	"github.com/castellan-bot/castellan/internal/models"
)

// Store maps channel IDs to time-ordered pending notifications. All mutating
// operations are mutually exclusive under one mutex; a notification is either
// pending, fired (extracted by TakeDue), or cancelled — fired and cancelled
// entries are removed, never archived.
type Store struct {
	mu     sync.Mutex
	events map[string][]models.ScheduledNotification
	now    func() time.Time
}

// NewStore creates an empty schedule store.
func NewStore() *Store {
	return &Store{events: make(map[string][]models.ScheduledNotification), now: time.Now}
}

// Schedule registers a notification. It returns false without mutating the
// store unless fireAt is strictly in the future. The channel's sequence stays
// sorted by fire time; ties keep insertion order.
func (s *Store) Schedule(channelID string, fireAt time.Time, targets []string, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fireAt.After(s.now()) {
		return false
	}

	s.events[channelID] = append(s.events[channelID], models.ScheduledNotification{
		ChannelID: channelID,
		FireAt:    fireAt,
		Targets:   targets,
		Message:   message,
	})
	evs := s.events[channelID]
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].FireAt.Before(evs[j].FireAt) })
	return true
}

// List returns a snapshot of the channel's pending notifications in fire
// order. Mutating the returned slice does not affect the store.
func (s *Store) List(channelID string) []models.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	evs := s.events[channelID]
	out := make([]models.ScheduledNotification, len(evs))
	copy(out, evs)
	return out
}

// TakeDue removes and returns, per channel, every notification with a fire
// time at or before now, preserving relative order. Removal is atomic with
// the return: repeated calls with non-decreasing now never yield the same
// notification twice. Channels left empty are dropped from the mapping.
func (s *Store) TakeDue(now time.Time) map[string][]models.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make(map[string][]models.ScheduledNotification)
	for channelID, evs := range s.events {
		// Sequences are sorted, so due entries form a prefix.
		i := 0
		for i < len(evs) && !evs[i].FireAt.After(now) {
			i++
		}
		if i == 0 {
			continue
		}
		fired := make([]models.ScheduledNotification, i)
		copy(fired, evs[:i])
		due[channelID] = fired

		if i == len(evs) {
			delete(s.events, channelID)
		} else {
			s.events[channelID] = evs[i:]
		}
	}
	return due
}

// Cancel removes the notification at the given position in the channel's
// current listing order. Returns false without mutation if the index is out
// of range. Positional cancellation is inherently racy between a List and
// the Cancel that follows it; callers accept that window.
func (s *Store) Cancel(channelID string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	evs, ok := s.events[channelID]
	if !ok || index < 0 || index >= len(evs) {
		return false
	}
	s.events[channelID] = append(evs[:index], evs[index+1:]...)
	if len(s.events[channelID]) == 0 {
		delete(s.events, channelID)
	}
	return true
}
