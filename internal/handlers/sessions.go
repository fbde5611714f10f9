package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bobmcallan/fund-breakdown/internal/cache"
	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/controller"
)

// SessionCookie names the cookie carrying the browser session ID.
const SessionCookie = "fb_session"

// Sessions hands out one controller per browser session.
type Sessions struct {
	store   *cache.Store[*controller.Controller]
	factory func() *controller.Controller
	logger  *common.Logger
	secure  bool
}

// NewSessions keeps controllers in store, creating them with factory. Evicted
// controllers release their chart.
func NewSessions(store *cache.Store[*controller.Controller], factory func() *controller.Controller, logger *common.Logger, secure bool) *Sessions {
	store.OnEvict(func(id string, c *controller.Controller) {
		go c.Close()
	})
	return &Sessions{store: store, factory: factory, logger: logger, secure: secure}
}

// Lookup returns the caller's controller, starting a new session when the
// request has none or its session has expired.
func (s *Sessions) Lookup(w http.ResponseWriter, r *http.Request) *controller.Controller {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	ctrl, created := s.store.GetOrCreate(id, s.factory)
	if created {
		s.logger.Debug().Str("session", id).Msg("session started")
	}
	return ctrl
}

// Peek returns the caller's controller without starting a session.
func (s *Sessions) Peek(r *http.Request) (*controller.Controller, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return s.store.Get(c.Value)
}

// Sweep drops expired sessions.
func (s *Sessions) Sweep() int {
	return s.store.Sweep()
}
