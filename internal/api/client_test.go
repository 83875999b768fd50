package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) string { return string(s) }

func TestBearerInjection(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok-123"), Options{})
	if _, err := c.Years(context.Background()); err != nil {
		t.Fatalf("years: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestNoHeaderWhenTokenEmpty(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""), Options{})
	if _, err := c.Years(context.Background()); err != nil {
		t.Fatalf("years: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
}

func TestPublicVariantSkipsAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"id":"y1","year":4}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok-123"), Options{})
	years, err := c.YearsPublic(context.Background())
	if err != nil {
		t.Fatalf("public years: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("public request carried auth header %q", gotAuth)
	}
	if len(years) != 1 || years[0].Year != 4 {
		t.Fatalf("bad years: %+v", years)
	}
}

func TestCanonicalStatusMessages(t *testing.T) {
	cases := []struct {
		status  int
		kind    Kind
		message string
	}{
		{401, KindUnauthorized, "invalid or expired token"},
		{403, KindForbidden, "access denied"},
		{404, KindNotFound, "endpoint not implemented"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"server words, ignored"}`, tc.status)
		}))
		c := New(srv.URL, staticToken(""), Options{})
		_, err := c.Years(context.Background())
		srv.Close()

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: err = %v, want *Error", tc.status, err)
		}
		if apiErr.Kind != tc.kind || apiErr.Message != tc.message {
			t.Fatalf("status %d: got kind=%s msg=%q", tc.status, apiErr.Kind, apiErr.Message)
		}
		if !errors.Is(err, &Error{Kind: tc.kind}) {
			t.Fatalf("status %d: errors.Is kind match failed", tc.status)
		}
	}
}

func TestServerMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"year already exists"}`, 409)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""), Options{})
	_, err := c.CreateYear(context.Background(), 5)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Kind != KindValidation || apiErr.Message != "year already exists" {
		t.Fatalf("got kind=%s msg=%q", apiErr.Kind, apiErr.Message)
	}
}

func TestNetworkFailureMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // guarantee a connection refusal

	c := New(srv.URL, staticToken(""), Options{})
	_, err := c.Years(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Kind != KindUnavailable || apiErr.Message != "could not reach server" {
		t.Fatalf("got kind=%s msg=%q", apiErr.Kind, apiErr.Message)
	}
}

func TestPublicYearsDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", 401)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""), Options{})
	years, err := c.YearsPublic(context.Background())
	if err == nil {
		t.Fatalf("expected error for logging")
	}
	if years == nil || len(years) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", years)
	}
}

func TestLoginStudentExtractsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/student/login" {
			http.Error(w, "not found", 404)
			return
		}
		w.Write([]byte(`{"token":"jwt-abc","user":{"id":"stu-1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""), Options{})
	tok, err := c.LoginStudent(context.Background(), "EN-001")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok != "jwt-abc" {
		t.Fatalf("token = %q", tok)
	}
}

func TestLoginWithoutTokenIsShapeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""), Options{})
	_, err := c.LoginStudent(context.Background(), "EN-001")
	if !errors.Is(err, &Error{Kind: KindBadShape}) {
		t.Fatalf("err = %v, want bad_shape", err)
	}
}
