package utils

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON writes data with the given status. A nil data writes no body.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError renders err as {"error": "..."}. Internal failures never expose
// their cause.
func WriteError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	msg := appErr.Message
	if appErr.Kind == InternalFailure {
		msg = "Internal server error"
	}
	WriteJSON(w, appErr.Kind.Status(), ErrorBody{Error: msg})
}

// DecodeJSON reads the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
