package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/libranet/apiserver/types"
)

type contextKey string

const contextPrincipalKey contextKey = "principal"

// errMissingPrincipal is returned when a handler runs without the auth
// middleware having injected a principal.
var errMissingPrincipal = errors.New("missing principal")

func withPrincipal(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextPrincipalKey, user)
}

// principalFromContext returns the authenticated user attached to the
// request by the auth middleware.
func principalFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextPrincipalKey).(types.User)
	if !ok || user.ID < 1 {
		return types.User{}, errMissingPrincipal
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
