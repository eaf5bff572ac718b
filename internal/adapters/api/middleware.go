package api

import (
	"context"
	"io"
	"net/http"

	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/services"
)

type contextKey string

// CtxPrincipal is the context key AuthMiddleware stores the
// authenticated domain.Principal under.
const CtxPrincipal contextKey = "principal"

// AuthMiddleware wraps next with SigV4 authentication: it materializes
// the request body, calls auth.Authenticate, and translates the
// resulting AuthenticationOutcome into a response per §6/§7 — the only
// HTTP-layer logic this package owns beyond health/metrics endpoints.
//
// CredentialsMissing and CredentialsRejected both become 401; the
// reason string is the response body, matching the stable wording
// AuthenticationOutcome.Reason() returns. A propagated infrastructural
// error becomes 500 with no outcome-specific detail leaked.
func AuthMiddleware(auth *services.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body.Close()

			req := services.IncomingRequest{
				Method:  r.Method,
				URI:     r.URL.Path,
				Query:   r.URL.Query(),
				Headers: r.Header,
				Body:    string(body),
			}

			outcome, err := auth.Authenticate(r.Context(), req)
			if err != nil {
				http.Error(w, "internal authentication error", http.StatusInternalServerError)
				return
			}

			switch outcome.Kind() {
			case domain.Authenticated:
				ctx := context.WithValue(r.Context(), CtxPrincipal, outcome.Principal())
				next.ServeHTTP(w, r.WithContext(ctx))
			case domain.CredentialsMissing, domain.CredentialsRejected:
				http.Error(w, outcome.Reason(), http.StatusUnauthorized)
			}
		})
	}
}

// PrincipalFromContext retrieves the principal AuthMiddleware stored,
// for handlers that need the caller's identity.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(CtxPrincipal).(domain.Principal)
	return p, ok
}
