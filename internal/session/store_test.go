package session_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/JssMedrano/aqualab-go/internal/api"
	"github.com/JssMedrano/aqualab-go/internal/db"
	"github.com/JssMedrano/aqualab-go/internal/devserver"
	"github.com/JssMedrano/aqualab-go/internal/localstore"
	"github.com/JssMedrano/aqualab-go/internal/portal"
	"github.com/JssMedrano/aqualab-go/internal/session"
)

type harness struct {
	state  *localstore.Store
	client *api.Client
	store  *session.Store
}

// newHarness runs the client against a real portal instance backed by sqlite.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	portalDB, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(dir, "portal.db")+"?mode=rwc", db.SchemaPortal)
	if err != nil {
		t.Fatalf("open portal db: %v", err)
	}
	t.Cleanup(func() { portalDB.Close() })

	srv := httptest.NewServer(devserver.NewRouter(portalDB, devserver.Options{JWTSecret: "test-secret"}))
	t.Cleanup(srv.Close)

	clientDB, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(dir, "client.db")+"?mode=rwc", db.SchemaClient)
	if err != nil {
		t.Fatalf("open client db: %v", err)
	}
	t.Cleanup(func() { clientDB.Close() })

	state := localstore.New(clientDB)
	client := api.New(srv.URL, &session.PersistedTokenSource{State: state}, api.Options{})
	return &harness{
		state:  state,
		client: client,
		store:  session.NewStore(state, client),
	}
}

func (h *harness) registerStudent(t *testing.T, name, enrollment string, year int) portal.User {
	t.Helper()
	u, err := h.client.RegisterStudent(context.Background(), name, enrollment, year)
	if err != nil {
		t.Fatalf("register student: %v", err)
	}
	return u
}

func (h *harness) registerTeacher(t *testing.T, name, email, password string) portal.User {
	t.Helper()
	u, err := h.client.RegisterTeacher(context.Background(), name, "T-001", email, password)
	if err != nil {
		t.Fatalf("register teacher: %v", err)
	}
	return u
}

func TestStudentLoginFetchesProfile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registerStudent(t, "Ana", "EN-001", 5)

	sess, err := h.store.LoginStudent(ctx, "EN-001")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.Authenticated() || sess.Role != portal.RoleStudent {
		t.Fatalf("session = %+v", sess)
	}
	if sess.User.Name != "Ana" || sess.User.Year.Value() != 5 {
		t.Fatalf("profile not fetched: %+v", sess.User)
	}

	// Credentials are durable.
	raw, ok, err := h.state.Get(ctx, localstore.KeyToken)
	if err != nil || !ok || len(raw) == 0 {
		t.Fatalf("token not persisted: %v %v", ok, err)
	}
	if id := h.store.UserID(ctx); id != sess.User.ID {
		t.Fatalf("UserID = %q, want %q", id, sess.User.ID)
	}
}

func TestLoginRejectsUnknownStudent(t *testing.T) {
	h := newHarness(t)
	if _, err := h.store.LoginStudent(context.Background(), "EN-NOPE"); err == nil {
		t.Fatalf("expected login failure")
	}
	if h.store.Current().Authenticated() {
		t.Fatalf("failed login left a session")
	}
}

func TestFailedLoginClearsPriorSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registerStudent(t, "Ana", "EN-001", 5)
	h.registerTeacher(t, "Prof", "prof@school.test", "s3cret")

	if _, err := h.store.LoginStudent(ctx, "EN-001"); err != nil {
		t.Fatalf("student login: %v", err)
	}
	if _, err := h.store.LoginTeacher(ctx, "prof@school.test", "wrong"); err == nil {
		t.Fatalf("expected teacher login failure")
	}

	// The student's credentials must not survive the attempted switch.
	if h.store.Current().Authenticated() {
		t.Fatalf("stale session after failed login: %+v", h.store.Current())
	}
	if _, ok, _ := h.state.Get(ctx, localstore.KeyToken); ok {
		t.Fatalf("stale token after failed login")
	}
}

func TestTeacherLoginAndSetYear(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registerTeacher(t, "Prof", "prof@school.test", "s3cret")

	sess, err := h.store.LoginTeacher(ctx, "prof@school.test", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Role != portal.RoleTeacher || sess.User.Email != "prof@school.test" {
		t.Fatalf("session = %+v", sess)
	}
	if sess.User.Password != "" {
		t.Fatalf("password leaked into session")
	}

	if _, err := h.store.SetTeacherYear(ctx, 0); err == nil {
		t.Fatalf("year 0 accepted")
	}
	user, err := h.store.SetTeacherYear(ctx, 3)
	if err != nil {
		t.Fatalf("set year: %v", err)
	}
	if user.Year.Value() != 3 {
		t.Fatalf("year not applied: %+v", user)
	}
	if h.store.Current().User.Year.Value() != 3 {
		t.Fatalf("in-memory session not refreshed")
	}
}

func TestHydrateRestoresSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registerStudent(t, "Ana", "EN-001", 5)
	if _, err := h.store.LoginStudent(ctx, "EN-001"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// A fresh store over the same state simulates a process restart.
	restarted := session.NewStore(h.state, h.client)
	sess, err := restarted.Hydrate(ctx)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if !sess.Authenticated() || sess.Role != portal.RoleStudent || sess.User.Name != "Ana" {
		t.Fatalf("hydrated session = %+v", sess)
	}
}

func TestHydrateRefreshesTeacherProfile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	teacher := h.registerTeacher(t, "Prof", "prof@school.test", "s3cret")
	if _, err := h.store.LoginTeacher(ctx, "prof@school.test", "s3cret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Change the year server-side behind the persisted session's back.
	if _, err := h.client.UpdateTeacher(ctx, teacher.ID, map[string]any{"year": 4}); err != nil {
		t.Fatalf("update teacher: %v", err)
	}

	restarted := session.NewStore(h.state, h.client)
	if _, err := restarted.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if restarted.Current().User.Year.Value() == 4 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("background refresh never applied: %+v", restarted.Current().User)
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.registerStudent(t, "Ana", "EN-001", 5)
	if _, err := h.store.LoginStudent(ctx, "EN-001"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := h.store.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if h.store.Current().Authenticated() {
		t.Fatalf("session survived logout")
	}
	for _, key := range []string{localstore.KeyToken, localstore.KeyUserType, localstore.KeyUser} {
		if _, ok, _ := h.state.Get(ctx, key); ok {
			t.Fatalf("key %q survived logout", key)
		}
	}
}
