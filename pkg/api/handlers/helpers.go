package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api/auth"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is
// written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// ownerFromContext reads the authenticated owner id placed in the context by
// the auth middleware. Returns "" and writes 401 if the request somehow
// reached an authenticated handler without claims.
func ownerFromContext(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.UserID == "" {
		Unauthorized(w, "Authentication required")
		return "", false
	}
	return claims.UserID, true
}
