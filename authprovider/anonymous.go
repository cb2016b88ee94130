// ABOUTME: Anonymous-access paths that bypass session checks.
// ABOUTME: The current navigation path is passed explicitly or carried on the context.

package authprovider

import (
	"context"
	"slices"
)

// DefaultAnonymousPaths are pages reachable without a session.
var DefaultAnonymousPaths = []string{
	"/verify/token",
	"forgot/password",
}

type contextKey string

const pathnameContextKey contextKey = "pathname"

// WithPathname records the current navigation path for the authenticated
// client returned by Provider.Client.
func WithPathname(ctx context.Context, pathname string) context.Context {
	return context.WithValue(ctx, pathnameContextKey, pathname)
}

// PathnameFromContext returns the path set by WithPathname, or "".
func PathnameFromContext(ctx context.Context) string {
	p, _ := ctx.Value(pathnameContextKey).(string)
	return p
}

// IsAnonymous reports whether pathname is on the allow-list. Matching is exact.
func (p *Provider) IsAnonymous(pathname string) bool {
	return slices.Contains(p.anonymousPaths, pathname)
}
