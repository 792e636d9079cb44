package api

import (
	"net/http"

	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/internal/security"
)

type chiMiddleware = func(next http.Handler) http.Handler

func (a api) registerGlobalMiddlewares() {
	a.router.Use(
		a.logMiddleware(),
	)
	if a.allowedOrigin != "" {
		a.router.Use(a.corsMiddleware())
	}
}

func (a api) logMiddleware() chiMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.logger.WithValues(log.Kv{
				"url":    r.URL,
				"method": r.Method,
			}).Debugf("Request received")

			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows the platform frontend (FRONTEND_URL) to call the API
// from the browser.
func (a api) corsMiddleware() chiMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware gates a handler on a valid Supabase bearer token.
func (a api) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := security.TokenFromRequest(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		claims, err := a.tokenVerifier.VerifyToken(token)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		// Make the token subject available to the handlers logging context.
		if sub, ok := claims["sub"].(string); ok {
			r = r.WithContext(log.CtxWithValues(r.Context(), log.Kv{"token-subject": sub}))
		}

		next.ServeHTTP(w, r)
	}
}
