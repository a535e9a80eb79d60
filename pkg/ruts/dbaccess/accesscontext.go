package dbaccess

import (
	"context"
	"time"
)

// AccessContext describes who is touching the database and when.
type AccessContext struct {
	AccessUser    string
	AccessProcess string
	AccessModule  string
	AccessDate    time.Time
}

// AccessDateOrNow returns AccessDate, or the current time when unset.
func (ac AccessContext) AccessDateOrNow() time.Time {
	if ac.AccessDate.IsZero() {
		return time.Now()
	}
	return ac.AccessDate
}

type accessContextKey struct{}

// WithAccessContext binds ac to ctx for downstream data access.
func WithAccessContext(ctx context.Context, ac AccessContext) context.Context {
	return context.WithValue(ctx, accessContextKey{}, ac)
}

// AccessContextFrom returns the access context bound to ctx.
func AccessContextFrom(ctx context.Context) (AccessContext, bool) {
	if ctx == nil {
		return AccessContext{}, false
	}
	ac, ok := ctx.Value(accessContextKey{}).(AccessContext)
	return ac, ok
}
