package billworkflow

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/medicore/internal/authorization"
	"github.com/smallbiznis/medicore/internal/cache"
	"github.com/smallbiznis/medicore/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const DefaultSessionTTL = 30 * time.Minute

var ErrDraftNotFound = errors.New("draft_not_found")

// Sessions holds the open draft controllers, keyed by draft key. A draft
// is only visible to the actor that opened it and expires after a period
// without access.
type Sessions struct {
	gateway  Gateway
	log      *zap.Logger
	ttl      time.Duration
	sessions cache.Cache[string, *Controller]
}

type SessionParams struct {
	fx.In

	Gateway Gateway
	Log     *zap.Logger
	Clock   clock.Clock
}

func NewSessions(p SessionParams) *Sessions {
	return &Sessions{
		gateway:  p.Gateway,
		log:      p.Log,
		ttl:      DefaultSessionTTL,
		sessions: cache.NewTTLCache[string, *Controller](cache.WithClock(p.Clock)),
	}
}

// Open starts a new draft for actor.
func (s *Sessions) Open(actor authorization.Actor) *Controller {
	c := New(Params{
		Key:     ulid.Make().String(),
		Actor:   actor,
		Gateway: s.gateway,
		Log:     s.log,
	})
	s.sessions.Set(c.Key(), c, s.ttl)
	return c
}

// Get returns the draft under key and extends its expiry.
func (s *Sessions) Get(actor authorization.Actor, key string) (*Controller, error) {
	if _, err := ulid.ParseStrict(key); err != nil {
		return nil, ErrDraftNotFound
	}
	c, ok := s.sessions.Get(key)
	if !ok || c.Actor().ID != actor.ID {
		return nil, ErrDraftNotFound
	}
	s.sessions.Set(key, c, s.ttl)
	return c, nil
}

// Close forgets the draft under key.
func (s *Sessions) Close(actor authorization.Actor, key string) error {
	c, err := s.Get(actor, key)
	if err != nil {
		return err
	}
	if err := c.Discard(); err != nil {
		return err
	}
	s.sessions.Delete(key)
	return nil
}

func (s *Sessions) Len() int {
	return s.sessions.Len()
}
