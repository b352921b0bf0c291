package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/nibblelog/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps service errors onto HTTP status codes and client-facing
// messages. Unknown errors are reported as 500 without details.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Cannot push deltas for other users"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Incorrect username or password"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Invalid authentication credentials"
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Store unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
