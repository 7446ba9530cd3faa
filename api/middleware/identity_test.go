package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIdentityRejectsMissingUserHeader(t *testing.T) {
	called := false
	handler := Identity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if called {
		t.Fatalf("handler must not run without a user id")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 but got %d", w.Code)
	}
}

func TestIdentityPutsUserIDOnContext(t *testing.T) {
	var gotUser string
	handler := Identity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-User-Id", "  user-1  ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUser != "user-1" {
		t.Fatalf("expected trimmed user id, got %q", gotUser)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Fatalf("header %q: expected token %q but got %q", tc.header, tc.want, got)
		}
	}
}
