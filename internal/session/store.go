// Package session is the single source of truth for who is logged in and with
// what token, persisted across process restarts through the local state store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/JssMedrano/aqualab-go/internal/api"
	"github.com/JssMedrano/aqualab-go/internal/localstore"
	"github.com/JssMedrano/aqualab-go/internal/portal"
)

// Session is a read-only snapshot of the current login. Token and Role are
// always set together or both absent.
type Session struct {
	Token string
	Role  portal.Role
	User  portal.User
}

func (s Session) Authenticated() bool { return s.Token != "" }

// PersistedTokenSource feeds api.Client from the durable store so that
// requests fired before Hydrate completes still carry the bearer header.
type PersistedTokenSource struct {
	State *localstore.Store
}

func (t *PersistedTokenSource) Token(ctx context.Context) string {
	raw, ok, err := t.State.Get(ctx, localstore.KeyToken)
	if err != nil || !ok {
		return ""
	}
	return string(raw)
}

type Store struct {
	state  *localstore.Store
	client *api.Client

	mu      sync.RWMutex
	current Session
}

func NewStore(state *localstore.Store, client *api.Client) *Store {
	return &Store{state: state, client: client}
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// UserID returns the id of the logged-in user, decoding the persisted token
// when the profile is missing one. Empty when it cannot be determined.
func (s *Store) UserID(ctx context.Context) string {
	cur := s.Current()
	if cur.User.ID != "" {
		return cur.User.ID
	}
	tok := cur.Token
	if tok == "" {
		tok = (&PersistedTokenSource{State: s.state}).Token(ctx)
	}
	return DecodeToken(tok).UserID
}

// LoginStudent clears any prior session fully before attempting the new
// login, so credentials never bleed between sequential logins.
func (s *Store) LoginStudent(ctx context.Context, enrollmentNumber string) (Session, error) {
	if err := s.clear(ctx); err != nil {
		return Session{}, err
	}

	token, err := s.client.LoginStudent(ctx, enrollmentNumber)
	if err != nil {
		return Session{}, err
	}
	if err := s.persistCredentials(ctx, token, portal.RoleStudent); err != nil {
		return Session{}, err
	}

	// Fetch the full profile to pick up the assigned year. Non-fatal: the
	// session falls back to just the enrollment number.
	user := portal.User{EnrollmentNumber: enrollmentNumber}
	if id := DecodeToken(token).UserID; id != "" {
		if fetched, err := s.client.Student(ctx, id); err == nil {
			user = fetched
		} else {
			log.Warn().Err(err).Str("student_id", id).Msg("could not fetch student profile")
		}
	}

	sess := Session{Token: token, Role: portal.RoleStudent, User: user.Sanitize()}
	if err := s.persistUser(ctx, sess.User); err != nil {
		return Session{}, err
	}
	s.setCurrent(sess)
	return sess, nil
}

// LoginTeacher logs in with email and password. Unlike the student path, a
// failure to fetch the teacher profile fails the login.
func (s *Store) LoginTeacher(ctx context.Context, email, password string) (Session, error) {
	if err := s.clear(ctx); err != nil {
		return Session{}, err
	}

	token, err := s.client.LoginTeacher(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	if err := s.persistCredentials(ctx, token, portal.RoleTeacher); err != nil {
		return Session{}, err
	}

	id := DecodeToken(token).UserID
	if id == "" {
		return Session{}, errors.New("could not determine teacher id from token")
	}
	user, err := s.client.Teacher(ctx, id)
	if err != nil {
		return Session{}, err
	}

	sess := Session{Token: token, Role: portal.RoleTeacher, User: user.Sanitize()}
	if err := s.persistUser(ctx, sess.User); err != nil {
		return Session{}, err
	}
	s.setCurrent(sess)
	return sess, nil
}

// Hydrate restores a persisted session at startup. For a teacher it also
// refreshes the live profile in the background, since the assigned year may
// have changed server-side since the last persist.
func (s *Store) Hydrate(ctx context.Context) (Session, error) {
	tokenRaw, ok, err := s.state.Get(ctx, localstore.KeyToken)
	if err != nil || !ok {
		return Session{}, err
	}
	roleRaw, ok, err := s.state.Get(ctx, localstore.KeyUserType)
	if err != nil || !ok {
		return Session{}, err
	}

	sess := Session{Token: string(tokenRaw), Role: portal.Role(roleRaw)}
	if userRaw, ok, err := s.state.Get(ctx, localstore.KeyUser); err == nil && ok {
		var u portal.User
		if json.Unmarshal(userRaw, &u) == nil {
			sess.User = u
		}
	}
	s.setCurrent(sess)

	if sess.Role == portal.RoleTeacher {
		if id := DecodeToken(sess.Token).UserID; id != "" {
			go s.refreshTeacher(context.WithoutCancel(ctx), id)
		}
	}
	return sess, nil
}

func (s *Store) refreshTeacher(ctx context.Context, id string) {
	user, err := s.client.Teacher(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("teacher_id", id).Msg("could not refresh teacher profile")
		return
	}
	if err := s.persistUser(ctx, user.Sanitize()); err != nil {
		return
	}
	s.mu.Lock()
	if s.current.Token != "" {
		s.current.User = user.Sanitize()
	}
	s.mu.Unlock()
}

// RefreshProfile re-fetches the current user's profile and persists it.
func (s *Store) RefreshProfile(ctx context.Context) (portal.User, error) {
	cur := s.Current()
	id := s.UserID(ctx)
	if id == "" {
		return portal.User{}, errors.New("could not determine user id")
	}
	var (
		user portal.User
		err  error
	)
	if cur.Role == portal.RoleTeacher {
		user, err = s.client.Teacher(ctx, id)
	} else {
		user, err = s.client.Student(ctx, id)
	}
	if err != nil {
		return portal.User{}, err
	}
	user = user.Sanitize()
	if err := s.persistUser(ctx, user); err != nil {
		return portal.User{}, err
	}
	s.mu.Lock()
	s.current.User = user
	s.mu.Unlock()
	return user, nil
}

// SetTeacherYear updates the logged-in teacher's assigned cohort year and
// refreshes the profile afterwards.
func (s *Store) SetTeacherYear(ctx context.Context, year int) (portal.User, error) {
	if year < 1 {
		return portal.User{}, errors.New("year must be a positive integer")
	}
	id := s.UserID(ctx)
	if id == "" {
		return portal.User{}, errors.New("could not determine teacher id")
	}
	if _, err := s.client.UpdateTeacher(ctx, id, map[string]any{"year": year}); err != nil {
		return portal.User{}, err
	}
	return s.RefreshProfile(ctx)
}

// Logout clears in-memory and persisted state. No server call.
func (s *Store) Logout(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	s.setCurrent(Session{})
	for _, key := range []string{localstore.KeyToken, localstore.KeyUserType, localstore.KeyUser} {
		if err := s.state.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) persistCredentials(ctx context.Context, token string, role portal.Role) error {
	if err := s.state.Set(ctx, localstore.KeyToken, []byte(token)); err != nil {
		return err
	}
	return s.state.Set(ctx, localstore.KeyUserType, []byte(role))
}

func (s *Store) persistUser(ctx context.Context, u portal.User) error {
	buf, err := json.Marshal(u.Sanitize())
	if err != nil {
		return err
	}
	return s.state.Set(ctx, localstore.KeyUser, buf)
}

func (s *Store) setCurrent(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}
