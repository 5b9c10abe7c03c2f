package middleware

import "context"

const holderContextKey ContextKey = "log-holder"

// claimsHolder lets the outer request logger see who the inner auth
// middleware authenticated.
type claimsHolder struct {
	userID string
}

func withHolder(ctx context.Context, h *claimsHolder) context.Context {
	return context.WithValue(ctx, holderContextKey, h)
}

func noteUser(ctx context.Context, userID string) {
	if h, ok := ctx.Value(holderContextKey).(*claimsHolder); ok {
		h.userID = userID
	}
}
