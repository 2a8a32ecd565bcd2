package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teranos/hmdraft/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeDomainError maps sentinel errors onto HTTP status codes
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, httpStatus(err), err.Error())
}

func httpStatus(err error) int {
	switch {
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsInvalidChangeError(err):
		return http.StatusUnprocessableEntity
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.IsConflictError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// readJSON reads and decodes a JSON request body
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return err
	}
	return nil
}

// shortID truncates an ID to 8 characters for logging
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
