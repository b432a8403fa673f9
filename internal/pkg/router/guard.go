package router

import (
	"log/slog"

	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
)

// Guard decides whether a request may reach its handler.
// A non-nil error denies the request and is rendered as the response.
type Guard func(r *Request) error

// Authorizer answers RBAC questions. *casbin.Enforcer satisfies it.
type Authorizer interface {
	Enforce(rvals ...any) (bool, error)
}

// Guarded returns a Handler that runs guards in order before h.
// The first guard returning an error stops the chain.
func Guarded(h Handler, guards ...Guard) Handler {
	return func(r *Request) (any, error) {
		for _, g := range guards {
			if err := g(r); err != nil {
				return nil, err
			}
		}
		return h(r)
	}
}

// RequireAuth denies requests without authenticated claims.
func RequireAuth() Guard {
	return func(r *Request) error {
		if jwt.GetAuth(r.Context()) == nil {
			return goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
		}
		return nil
	}
}

// RequireRole allows a request when any role of the caller may perform act on obj.
func RequireRole(az Authorizer, obj, act string) Guard {
	return func(r *Request) error {
		clm := jwt.GetAuth(r.Context())
		if clm == nil {
			return goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
		}

		return authorize(r, az, clm, obj, act)
	}
}

// RequireSelfOr allows a request when the caller is the user named by the path
// param, and otherwise falls back to the role check.
func RequireSelfOr(param string, az Authorizer, obj, act string) Guard {
	return func(r *Request) error {
		clm := jwt.GetAuth(r.Context())
		if clm == nil {
			return goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
		}

		if id := r.GetParam(param); id != "" && id == clm.UserID {
			return nil
		}

		return authorize(r, az, clm, obj, act)
	}
}

func authorize(r *Request, az Authorizer, clm *jwt.Claims, obj, act string) error {
	if az == nil {
		return goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	for _, role := range clm.Roles {
		ok, err := az.Enforce(role, obj, act)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to check authorization", "user_id", clm.UserID, "role", role, "error", err)
			return goerror.NewServer(err)
		}
		if ok {
			return nil
		}
	}

	return goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
}
