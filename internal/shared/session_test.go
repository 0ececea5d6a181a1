package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lunchmates/lunchmates/internal/shared"
	_ "github.com/lunchmates/lunchmates/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func roundTrip(t *testing.T, sm *shared.SessionManager, sess *shared.Session) *shared.Session {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := sm.Commit(context.Background(), rec, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return loaded
}

func TestSessionPersistsValuesAndUser(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")
	sess.SetZipcode("01003")

	loaded := roundTrip(t, sm, sess)
	if loaded.User() != "42" {
		t.Fatalf("expected user 42, got %q", loaded.User())
	}
	if loaded.Zipcode() != "01003" {
		t.Fatalf("expected zipcode preserved, got %q", loaded.Zipcode())
	}
	if !loaded.LoggedIn() {
		t.Fatalf("expected logged-in session")
	}
}

func TestClearUserDropsIdentityAndZipcode(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sm.Load(context.Background(), req)
	sess.SetUser("42")
	sess.SetZipcode("01003")
	sess.ClearUser()

	loaded := roundTrip(t, sm, sess)
	if loaded.LoggedIn() {
		t.Fatalf("expected anonymous session")
	}
	if loaded.Zipcode() != "" {
		t.Fatalf("expected zipcode cleared, got %q", loaded.Zipcode())
	}
}

func TestFlashIsDeliveredOnce(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sm.Load(context.Background(), req)
	sess.AddFlash(shared.FlashMessage{Kind: "info", Message: "hello"})

	loaded := roundTrip(t, sm, sess)
	flash := loaded.PopFlash()
	if flash == nil || flash.Message != "hello" {
		t.Fatalf("expected flash, got %+v", flash)
	}
	if loaded.PopFlash() != nil {
		t.Fatalf("flash must be delivered once")
	}
}

func TestDestroyRemovesSessionAndCookie(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := sm.Load(context.Background(), req)
	sess.SetUser("42")

	rec := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), rec, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sm.Destroy(sess)
	rec = httptest.NewRecorder()
	if err := sm.Commit(context.Background(), rec, req, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	setCookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "Max-Age=0") {
		t.Fatalf("expected expired cookie, got %q", setCookie)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LoggedIn() {
		t.Fatalf("destroyed session must not resolve to a user")
	}
}

func TestNilSessionHelpersAreSafe(t *testing.T) {
	var sess *shared.Session
	if sess.LoggedIn() {
		t.Fatalf("nil session must not be logged in")
	}
	if sess.Zipcode() != "" {
		t.Fatalf("nil session must have no zipcode")
	}
}
