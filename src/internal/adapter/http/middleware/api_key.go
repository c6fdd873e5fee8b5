package middleware

import (
	"net/http"
	"strings"

	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// APIKey checks the X-Api-Key header against a bcrypt hash and stores the key
// on the request context so collaborator calls can forward it. An empty hash
// turns the check off.
func APIKey(keyHash string) func(http.Handler) http.Handler {
	hash := []byte(strings.TrimSpace(keyHash))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get(commons.APIKeyHeader))

			if len(hash) > 0 {
				if apiKey == "" || bcrypt.CompareHashAndPassword(hash, []byte(apiKey)) != nil {
					logger.Info("api key middleware unauthorized request", logger.Fields{
						"method":      r.Method,
						"path":        r.URL.Path,
						"credentials": "invalid_or_missing",
					})
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}

			if apiKey != "" {
				r = r.WithContext(commons.WithAPIKey(r.Context(), apiKey))
			}
			next.ServeHTTP(w, r)
		})
	}
}
