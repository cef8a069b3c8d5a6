package internal

import (
	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/policy"
	"github.com/go-kit/kit/endpoint"
	"golang.org/x/net/context"
)

// currentSubject returns the user acting in the current call - an empty subject for anonymous calls
func currentSubject(ctx context.Context) policy.Subject {
	u := ctxhelper.User(ctx)
	if u == nil {
		return policy.Subject{}
	}
	return policy.Subject{ID: u.ID, Role: u.Role}
}

// EnsureUserLoggedIn is a middleware that checks if there is a valid user session for the current call
func EnsureUserLoggedIn(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		if ctxhelper.User(ctx) == nil {
			// Nobody logged in
			return nil, ErrNotAuthorized
		}
		return next(ctx, request)
	}
}

// RequireRole creates a middleware that only lets users pass whose role may perform the action on at least some
// resources of the given type. Ownership is checked by the services.
func RequireRole(p *policy.Enforcer, resource, action string) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return EnsureUserLoggedIn(func(ctx context.Context, request interface{}) (interface{}, error) {
			if sub := currentSubject(ctx); !p.RoleCan(sub.Role, resource, action) {
				return nil, errForbidden(sub.Role)
			}
			return next(ctx, request)
		})
	}
}
