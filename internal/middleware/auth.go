package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"bsanalyzer/internal/auth"
	apierrors "bsanalyzer/internal/errors"
)

// TokenQueryParam carries the access token on WebSocket upgrades, where
// browsers cannot set an Authorization header.
const TokenQueryParam = "token"

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticator verifies bearer tokens and stores their claims in the
// request context.
type Authenticator struct {
	tokens       TokenParser
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAuthenticator creates the authentication middleware.
func NewAuthenticator(tokens TokenParser, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		tokens:       tokens,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "auth_middleware")),
	}
}

// RequireToken rejects requests without a valid bearer token with 401.
func (a *Authenticator) RequireToken(next http.Handler) http.Handler {
	return a.require(next, false)
}

// RequireTokenOrQuery is RequireToken that also accepts ?token=.
func (a *Authenticator) RequireTokenOrQuery(next http.Handler) http.Handler {
	return a.require(next, true)
}

func (a *Authenticator) require(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" && allowQuery {
			token = r.URL.Query().Get(TokenQueryParam)
		}
		if token == "" {
			a.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			a.logger.WarnContext(r.Context(), "Rejected access token",
				slog.String("error", err.Error()),
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			a.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// RequireAdmin rejects authenticated non-admin callers with 403. It must be
// mounted after RequireToken.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireRole(auth.RoleAdmin)(next)
}

// RequireRole rejects authenticated callers whose token carries a different
// role with 403. Admin tokens are refused on user routes because usernames
// are only unique within each role.
func (a *Authenticator) RequireRole(role string) func(http.Handler) http.Handler {
	refusal := apierrors.ErrUserRequired
	if role == auth.RoleAdmin {
		refusal = apierrors.ErrAdminRequired
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				a.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
				return
			}
			if claims.Role != role {
				a.logger.WarnContext(r.Context(), "Route refused for role",
					slog.String("username", claims.Subject),
					slog.String("role", claims.Role),
					slog.String("path", r.URL.Path),
				)
				a.errorHandler.HandleError(w, r, refusal)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
