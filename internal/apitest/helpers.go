package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Rakshitha-Poola/Js-Tracker/internal/session"
)

type claimsCtxKey struct{}

func contextWithClaims(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

func claimsFromContext(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(*session.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
