package common

const (
	// AuthorizationHeaderName carries "Bearer <access token>" on sync requests.
	AuthorizationHeaderName = "Authorization"
	// BearerPrefix precedes the token inside the Authorization header.
	BearerPrefix = "Bearer "

	// DefaultPullPageLimit caps how many deltas one pull returns.
	DefaultPullPageLimit = 1000
)
