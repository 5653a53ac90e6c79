package model

import (
	"context"
	"time"
)

// Claims is what a verified session credential proves about the caller.
// Handlers, the gate and the moderation workflow only ever see this shape.
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == UserRoleAdmin
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
