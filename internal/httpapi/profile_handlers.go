package httpapi

import (
	"net/http"

	"tradedesk.org/internal/authz"
	"tradedesk.org/internal/identity"
)

type profileResponse struct {
	User     *identity.User `json:"user"`
	Roles    []string       `json:"roles"`
	Standard map[string]any `json:"standard_claims"`
	Custom   map[string]any `json:"custom_claims"`
}

// handleProfile returns the caller's provisioned user record plus the token
// claims split into standard OIDC claims and everything else.
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	user := subject(r)
	if user == nil || !user.IsAuthenticated() {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	claims := authz.Claims(identity.ClaimsFromContext(r.Context()))
	standard := make(map[string]any)
	custom := make(map[string]any)
	for name, value := range claims {
		if authz.IsStandardClaim(name) {
			standard[name] = value
		} else {
			custom[name] = value
		}
	}

	writeJSON(w, http.StatusOK, profileResponse{
		User:     user,
		Roles:    user.Roles(),
		Standard: standard,
		Custom:   custom,
	})
}
