package state

import (
	"context"
	"log/slog"
	"sync"

	"moviedb/proj/internal/domain/models"
)

type Store struct {
	mu    sync.Mutex
	state State
}

func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	return s.state.copy()
}

// begin applies session and reports whether the store was not already
// holding a session of the same user.
func (s *Store) begin(session *models.Session) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.state.Session == nil || s.state.Session.UserID != session.UserID
	s.state = Reduce(s.state, SessionChanged{Session: session})
	return s.state.copy(), started
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.copy()
}

func (s State) copy() State {
	s.Favorites = append([]models.Movie(nil), s.Favorites...)
	return s
}

// SessionStartFunc is called when a user's store picks up a session after
// holding none. It runs on the caller's goroutine.
type SessionStartFunc func(userID int64)

// Registry keeps one Store per signed-in user.
type Registry struct {
	log     *slog.Logger
	mu      sync.Mutex
	stores  map[int64]*Store
	onStart []SessionStartFunc
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:    log,
		stores: make(map[int64]*Store),
	}
}

func (r *Registry) store(userID int64) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[userID]
	if !ok {
		st = &Store{}
		r.stores[userID] = st
	}
	return st
}

func (r *Registry) Dispatch(userID int64, a Action) State {
	return r.store(userID).Dispatch(a)
}

// Update applies a to the user's store only if the user still has one.
func (r *Registry) Update(userID int64, a Action) (State, bool) {
	r.mu.Lock()
	st, ok := r.stores[userID]
	r.mu.Unlock()
	if !ok {
		return State{}, false
	}
	return st.Dispatch(a), true
}

func (r *Registry) State(userID int64) State {
	return r.store(userID).State()
}

func (r *Registry) OnSessionStart(fn SessionStartFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStart = append(r.onStart, fn)
}

// Ensure makes sure the user's store knows about session, which matters when a
// request arrives with a live token after another device signed out.
func (r *Registry) Ensure(session *models.Session) State {
	st := r.store(session.UserID)
	if cur := st.State(); cur.Session != nil && cur.Session.AccessToken == session.AccessToken {
		return cur
	}
	return r.begin(st, session)
}

func (r *Registry) begin(st *Store, session *models.Session) State {
	next, started := st.begin(session)
	if !started {
		return next
	}
	r.mu.Lock()
	hooks := append([]SessionStartFunc(nil), r.onStart...)
	r.mu.Unlock()
	if len(hooks) == 0 {
		return next
	}
	r.log.Debug("session started", "user_id", session.UserID)
	for _, fn := range hooks {
		fn(session.UserID)
	}
	return st.State()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Follow applies session events until events is closed or ctx is done.
func (r *Registry) Follow(ctx context.Context, events <-chan models.SessionEvent) {
	const op = "state.Registry.Follow"
	log := r.log.With("op", op)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.Apply(event)
			log.Debug("session event applied", "user_id", event.UserID, "signed_out", event.SignedOut())
		}
	}
}

// Apply brings the user's store in line with event. A sign-out for a token the
// store no longer holds is stale and leaves the newer session alone.
func (r *Registry) Apply(event models.SessionEvent) {
	if !event.SignedOut() {
		r.begin(r.store(event.UserID), event.Session)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[event.UserID]
	if !ok {
		return
	}
	if cur := st.State().Session; cur != nil && event.Revoked != "" && cur.AccessToken != event.Revoked {
		r.log.Debug("stale sign-out ignored", "user_id", event.UserID)
		return
	}
	st.Dispatch(SessionChanged{})
	delete(r.stores, event.UserID)
}
