// Package access scopes every data operation to the principal that issued it.
package access

import "context"

// Principal is the authenticated identity performing a request or job.
type Principal struct {
	UserID int64
	Email  string
}

func (p Principal) Valid() bool {
	return p.UserID > 0
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Valid()
}
