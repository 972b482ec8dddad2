package api

import (
	"encoding/json"
	"log"
	"net/http"

	"ChurchLedger/api/constants"
)

// RespondWithJSON writes payload with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println("[ERROR] encode response:", err)
	}
}

// Error response helper
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	log.Println("[ERROR]", status, errMsg)
	RespondWithJSON(w, status, map[string]interface{}{
		constants.ValueSuccess: false,
		constants.ValueError:   errMsg,
	})
}

// RespondWithSuccess merges fields into a {"success": true} body.
func RespondWithSuccess(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{constants.ValueSuccess: true}
	for k, v := range fields {
		body[k] = v
	}
	RespondWithJSON(w, http.StatusOK, body)
}

// DecodeJSON decodes r's body into dst, rejecting oversized bodies.
func DecodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}
