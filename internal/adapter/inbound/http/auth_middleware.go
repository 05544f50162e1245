package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/palisade-http/palisade/internal/domain/auth"
)

// BearerAuthMiddleware protects an endpoint with API keys. The presented
// bearer token is verified against the configured hashes (SHA-256 or
// Argon2id). With no hashes configured the middleware passes everything
// through, matching the "open unless keys are set" metrics policy.
func BearerAuthMiddleware(keyHashes []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keyHashes) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			rawKey, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || rawKey == "" {
				unauthorized(w)
				return
			}

			for _, hash := range keyHashes {
				match, err := auth.VerifyKey(rawKey, hash)
				if err != nil {
					logger.Warn("skipping malformed key hash", "error", err)
					continue
				}
				if match {
					logger.Debug("authenticated request", "key_id", auth.KeyID(rawKey))
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("rejected request with invalid api key", "key_id", auth.KeyID(rawKey))
			unauthorized(w)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="palisade"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
