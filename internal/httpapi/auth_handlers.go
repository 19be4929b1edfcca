package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"tradedesk.org/internal/audit"
)

const stateCookie = "td_oauth_state"

// handleLogin starts the OIDC authorization code flow.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.sso == nil {
		writeError(w, r, http.StatusServiceUnavailable, "sso is not configured")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.sso.AuthCodeURL(state), http.StatusFound)
}

// handleCallback finishes the code flow: it validates the state cookie,
// exchanges the code and hands the ID token back to the client, which uses
// it as a bearer token on the API.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.sso == nil {
		writeError(w, r, http.StatusServiceUnavailable, "sso is not configured")
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, r, http.StatusBadRequest, "state mismatch")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	rawIDToken, claims, err := a.sso.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "token exchange failed")
		return
	}

	ctx := r.Context()
	if a.provisioner != nil {
		user, err := a.provisioner.Sync(ctx, claims)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		_ = audit.LogEvent(ctx, "auth.login", map[string]any{
			"user_id":  user.ID,
			"username": user.Username,
		})
	}

	// clear the one-shot state cookie
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/", MaxAge: -1})

	writeJSON(w, http.StatusOK, map[string]any{
		"id_token":   rawIDToken,
		"token_type": "Bearer",
		"subject":    claims.String("sub"),
	})
}

// handleLogout redirects to the provider's end-session endpoint when it
// advertises one.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}
	if a.sso == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	target := a.sso.LogoutURL(r.URL.Query().Get("id_token_hint"))
	if target == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
