package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/linebot-hrm/internal/handler/http/response"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AdminRequired admits requests carrying a verified admin token. It expects
// jwtauth.Verifier to run first. A nil ja leaves the routes open.
func AdminRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if ja == nil {
			return next
		}
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.Unauthorized(w, "missing token")
				return
			}

			tokenType, ok := claims["type"].(string)
			if !ok || tokenType != jwt.TokenTypeAdmin {
				response.Forbidden(w, "admin token required")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// Admin chains the verifier and AdminRequired, or does nothing when ja is nil.
func Admin(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	if ja == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	verify := jwtauth.Verifier(ja)
	require := AdminRequired(ja)
	return func(next http.Handler) http.Handler {
		return verify(require(next))
	}
}
