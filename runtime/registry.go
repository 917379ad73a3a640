package runtime

import (
	"fmt"
	"sync"

	"sendify-chat/domain"
	"sendify-chat/errors"

	"github.com/samber/lo"
)

// Registry is the process-local room membership registry.
// It is authoritative for this process only: a room's full membership is the
// union over every process of the fleet, which no single registry observes.
type Registry struct {
	mu       sync.RWMutex
	sessions []*domain.Session // insertion order
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Join records that the identity occupies room through connectionID.
// A user holds at most one room per process: if a session already exists for
// identity.UserID, whatever connection it came from, it is moved in place to
// the new room and rebound to connectionID, and the room it left is returned.
func (r *Registry) Join(connectionID string, identity domain.Identity, room string) (string, error) {
	identity = identity.Normalized()
	room = domain.NormalizeRoom(room)
	if !identity.Bound() || room == "" {
		return "", fmt.Errorf("%w (user=%q, room=%q)", errors.ErrValidation, identity.Username, room)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, _, ok := lo.FindIndexOf(r.sessions, func(s *domain.Session) bool {
		return s.Identity.UserID == identity.UserID
	})
	if ok {
		previous := existing.Room
		existing.Room = room
		existing.ConnectionID = connectionID
		existing.Identity = identity
		return previous, nil
	}

	r.sessions = append(r.sessions, &domain.Session{
		ConnectionID: connectionID,
		Identity:     identity,
		Room:         room,
	})
	return "", nil
}

// Leave removes the session of connectionID. Leaving twice is expected when
// disconnects race and is not an error.
func (r *Registry) Leave(connectionID string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, index, ok := lo.FindIndexOf(r.sessions, func(s *domain.Session) bool {
		return s.ConnectionID == connectionID
	})
	if !ok {
		return domain.Session{}, false
	}
	r.sessions = append(r.sessions[:index], r.sessions[index+1:]...)
	return *session, true
}

// RosterOf returns copies of the sessions currently in room, in join order.
func (r *Registry) RosterOf(room string) []domain.Session {
	room = domain.NormalizeRoom(room)

	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.sessions, func(s *domain.Session, _ int) (domain.Session, bool) {
		return *s, s.Room == room
	})
}

func (r *Registry) Lookup(connectionID string) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := lo.Find(r.sessions, func(s *domain.Session) bool {
		return s.ConnectionID == connectionID
	})
	if !ok {
		return domain.Session{}, false
	}
	return *session, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
