package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminCORSAllowsListedOrigin(t *testing.T) {
	called := false
	mw := AdminCORS([]string{" https://admin.example.com/ "})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/leads", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition" {
		t.Fatalf("expected Content-Disposition exposed, got %q", got)
	}
}

func TestAdminCORSIgnoresUnknownOrigin(t *testing.T) {
	called := false
	mw := AdminCORS([]string{"https://admin.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/leads", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("same-origin semantics are left to the browser; handler should run")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}
}

func TestAdminCORSWildcard(t *testing.T) {
	called := false
	mw := AdminCORS([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/leads.csv", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example.com" {
		t.Fatalf("expected echoed origin, got %q", got)
	}
}

func TestAdminCORSPreflight(t *testing.T) {
	mw := AdminCORS([]string{"https://admin.example.com"})

	tests := []struct {
		origin string
		want   int
	}{
		{"https://admin.example.com", http.StatusNoContent},
		{"https://evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		called := false
		req := httptest.NewRequest(http.MethodOptions, "/api/admin/leads", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()

		mw(okHandler(&called)).ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.origin, tt.want, rec.Code)
		}
		if called {
			t.Fatalf("%s: preflight must not reach the handler", tt.origin)
		}
	}
}
