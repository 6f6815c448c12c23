package policy

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/stockkeep/stockkeep/internal/platform/httpx"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// SubjectResolver loads the policy subject for an authenticated user.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, userID int64) (Subject, error)
}

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Resolver SubjectResolver
	Logger   *slog.Logger
}

type subjectContextKey struct{}

// ContextWithSubject stores the resolved subject in context.
func ContextWithSubject(ctx context.Context, sub Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, sub)
}

// SubjectFromContext extracts the subject placed by Require.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	sub, ok := ctx.Value(subjectContextKey{}).(Subject)
	return sub, ok
}

// Require gates a route on a single (module, action) capability. The
// resolved subject is stored in the request context for handlers that
// pass it down to services.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := m.resolve(r)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !Authorize(sub, module, action) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), sub)))
		})
	}
}

// RequireAny gates a route on holding any action within the module.
func (m Middleware) RequireAny(module Module) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := m.resolve(r)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !HasAnyPermission(sub, module) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), sub)))
		})
	}
}

func (m Middleware) resolve(r *http.Request) (Subject, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Subject{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Subject{}, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("policy parse user id", slog.String("value", raw))
		}
		return Subject{}, false
	}
	sub, err := m.Resolver.ResolveSubject(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("policy resolve subject", slog.Any("error", err))
		}
		return Subject{}, false
	}
	return sub, true
}
