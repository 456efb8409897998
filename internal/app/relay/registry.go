package relay

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/carecall/internal/core"
	"github.com/dkeye/carecall/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry maps identified user ids to their signaling connection. One
// connection per user; a newer one replaces the older.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.UserID]*sessionEntry),
	}
}

// Bind registers sess under its user id. An older connection of the same
// user is cancelled and closed; Bind reports whether that happened.
func (r *Registry) Bind(sess core.MemberSession, cancel context.CancelFunc) bool {
	id := sess.Meta().User.ID

	r.mu.Lock()
	old, replaced := r.sessions[id]
	r.sessions[id] = &sessionEntry{Session: sess, Cancel: cancel}
	r.mu.Unlock()

	if replaced {
		if old.Cancel != nil {
			old.Cancel()
		}
		old.Session.Signal().Close()
		log.Info().Str("module", "app.registry").Str("user_id", string(id)).Msg("replaced older connection")
	}
	log.Info().
		Str("module", "app.registry").
		Str("user_id", string(id)).
		Bool("admin", sess.Meta().Admin).
		Msg("bound session")
	return replaced
}

// Unbind removes id only while it still maps to sess, so a replaced
// connection cannot unbind its successor.
func (r *Registry) Unbind(id domain.UserID, sess core.MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.Session != sess {
		return false
	}
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("user_id", string(id)).Msg("unbind session")
	return true
}

func (r *Registry) GetSession(id domain.UserID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Admins() []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0)
	for _, e := range r.sessions {
		if e.Session.Meta().Admin {
			out = append(out, e.Session)
		}
	}
	return out
}

// Online lists identified user ids in sorted order.
func (r *Registry) Online() []domain.UserID {
	r.mu.RLock()
	out := make([]domain.UserID, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (r *Registry) Cancel(id domain.UserID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("user_id", string(id)).Msg("canceled session")
	return true
}
