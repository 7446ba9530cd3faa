package middleware

import (
	"net/http"
	"strings"

	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

const userIDHeader = "X-User-Id"

// Identity resolves the caller for downstream handlers. The bearer token is
// never inspected here; it is carried through and forwarded to the ordering
// backend, which owns authentication. The user id header scopes the local
// cart and the per-user submission guards.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if userID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			ctx = WithUserID(ctx, userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}

			if token := bearerToken(r); token != "" {
				ctx = orderapi.WithToken(ctx, token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
