package storefront

import (
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
)

// AddNotification appends a message that removes itself after the store's TTL.
// Notifications expire independently of each other and of later state changes.
func (s *Store) AddNotification(typ, message string) string {
	var id string
	s.update(func(st *State) {
		id = s.pushNotification(st, typ, message)
	})
	return id
}

// DismissNotification removes a notification before it expires
func (s *Store) DismissNotification(id string) {
	s.update(func(st *State) {
		s.dropNotification(st, id)
	})
}

// pushNotification must be called with mu held
func (s *Store) pushNotification(st *State, typ, message string) string {
	switch typ {
	case models.NotificationSuccess, models.NotificationError, models.NotificationInfo:
	default:
		typ = models.NotificationInfo
	}

	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		CreatedAt: time.Now(),
	}
	st.Notifications = append(st.Notifications, n)
	util.NotificationsTotal.WithLabelValues(typ).Inc()

	if !s.closed {
		id := n.ID
		s.timers[id] = time.AfterFunc(s.ttl, func() { s.expire(id) })
	}
	return n.ID
}

func (s *Store) expire(id string) {
	s.mu.Lock()
	if _, pending := s.timers[id]; !pending {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.update(func(st *State) {
		s.dropNotification(st, id)
	})
}

// dropNotification must be called with mu held
func (s *Store) dropNotification(st *State, id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, n := range st.Notifications {
		if n.ID == id {
			st.Notifications = append(st.Notifications[:i:i], st.Notifications[i+1:]...)
			return
		}
	}
}
