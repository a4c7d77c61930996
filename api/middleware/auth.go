package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/extrachill/marketplace-settlement/api/responses"
	pkgAuth "github.com/extrachill/marketplace-settlement/pkg/auth"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !claims.Role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}
			if claims.Role == enums.RoleSeller && claims.SellerID <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller token without seller id"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxSubject, claims.Subject)
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			if claims.SellerID > 0 {
				ctx = context.WithValue(ctx, ctxSellerID, claims.SellerID)
			}

			if logg != nil {
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if claims.SellerID > 0 {
					ctx = logg.WithSellerID(ctx, claims.SellerID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
