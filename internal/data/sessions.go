package data

import (
	"time"

	"github.com/target/boostd/internal/domain/model"
)

// OwnerSessions tracks per-owner accounting. Sessions are created lazily and never removed.
type OwnerSessions struct {
	sessions map[string]*model.OwnerSession
}

// NewOwnerSessions returns an empty session table.
func NewOwnerSessions() *OwnerSessions {
	return &OwnerSessions{sessions: make(map[string]*model.OwnerSession)}
}

func (s *OwnerSessions) ensure(owner string) *model.OwnerSession {
	sess, ok := s.sessions[owner]
	if !ok {
		sess = &model.OwnerSession{OwnerID: owner}
		s.sessions[owner] = sess
	}
	return sess
}

// Active returns the owner's live job count.
func (s *OwnerSessions) Active(owner string) int {
	if sess, ok := s.sessions[owner]; ok {
		return sess.Active
	}
	return 0
}

// Started records a new live job for owner.
func (s *OwnerSessions) Started(owner string, now time.Time) model.OwnerSession {
	sess := s.ensure(owner)
	sess.Active++
	sess.Submitted++
	sess.LastActivity = now
	return *sess
}

// Ended decrements the owner's live count, floored at zero.
func (s *OwnerSessions) Ended(owner string, now time.Time) {
	sess := s.ensure(owner)
	if sess.Active > 0 {
		sess.Active--
	}
	sess.LastActivity = now
}

// Get returns a copy of the owner's session.
func (s *OwnerSessions) Get(owner string) (model.OwnerSession, bool) {
	sess, ok := s.sessions[owner]
	if !ok {
		return model.OwnerSession{}, false
	}
	return *sess, true
}

// Len returns the number of known owners.
func (s *OwnerSessions) Len() int {
	return len(s.sessions)
}
