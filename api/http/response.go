package http

import (
	"encoding/json"
	"net/http"

	"helix/domain/matching"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch err {
	case matching.ErrOrderNotFound, matching.ErrSymbolNotFound, matching.ErrBookNotFound:
		return http.StatusNotFound
	case matching.ErrDuplicateOrder, matching.ErrDuplicateSymbol, matching.ErrDuplicateBook:
		return http.StatusConflict
	case matching.ErrInvalidQuantity, matching.ErrInvalidPrice, matching.ErrUnfillableOrder:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
