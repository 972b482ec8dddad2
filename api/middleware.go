package api

import (
	"net/http"

	"ChurchLedger/api/constants"
)

// CORS opens the wrapped handler to any origin and answers preflight
// requests itself.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(constants.HeaderAccessControlAllowOrigin, "*")
		h.Set(constants.HeaderAccessControlAllowHeaders, constants.CORSAllowedHeaders)
		h.Set(constants.HeaderAccessControlAllowMethods, "POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostOnly rejects every method other than POST with 405.
func PostOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
