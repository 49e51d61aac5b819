package auth

import (
	"context"
	"net/http"
	"strings"
)

// Account is the slice of the user row the gate needs. Resolved on
// every request so moderation takes effect immediately.
type Account struct {
	Status string
	Role   string
}

// AccountResolver loads the account for a session user id. ok=false
// means the user no longer exists (stale session).
type AccountResolver func(ctx context.Context, uid uint) (Account, bool)

var resolver AccountResolver

// SetAccountResolver configures the DB-backed lookup used by the gate
// middlewares. Set during app bootstrap; keeps this package free of
// gorm imports.
func SetAccountResolver(f AccountResolver) { resolver = f }

func resolveAccount(ctx context.Context, uid uint) (Account, bool) {
	if resolver == nil {
		return Account{}, false
	}
	return resolver(ctx, uid)
}

const statusApproved = "APPROVED"

// Gate enforces the status state machine on page routes, re-evaluated
// per request:
//
//	anonymous on /dashboard/*           -> /login
//	authenticated, not APPROVED,
//	  anywhere but /pending             -> /pending
//	authenticated, APPROVED, on
//	  /login, /signup or /pending       -> /dashboard
//
// A missing user or empty status is treated as not approved (the check
// fails closed), and a stale session is cleared.
func Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		onDashboard := strings.HasPrefix(path, "/dashboard")
		onAuth := strings.HasPrefix(path, "/login") || strings.HasPrefix(path, "/signup")
		onPending := path == "/pending"

		uid, loggedIn := UserIDFromContext(r.Context())
		if !loggedIn {
			if onDashboard {
				redirectOr401(w, r, "/login")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		acct, ok := resolveAccount(r.Context(), uid)
		if !ok {
			ClearSession(w)
			if onDashboard {
				redirectOr401(w, r, "/login")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if acct.Status != statusApproved {
			if !onPending {
				redirectOr403(w, r, "/pending")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if onAuth || onPending {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects anonymous requests: 401 JSON for API clients,
// redirect to /login for browsers.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok || uid == 0 {
			redirectOr401(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireApproved layers the moderation check on top of RequireAuth.
func RequireApproved(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		acct, ok := resolveAccount(r.Context(), uid)
		if !ok {
			ClearSession(w)
			redirectOr401(w, r, "/login")
			return
		}
		if acct.Status != statusApproved {
			redirectOr403(w, r, "/pending")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireAdmin allows only approved admins through.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireApproved(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		acct, ok := resolveAccount(r.Context(), uid)
		if !ok || acct.Role != "ADMIN" {
			redirectOr403(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func redirectOr401(w http.ResponseWriter, r *http.Request, target string) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectOr403(w http.ResponseWriter, r *http.Request, target string) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
