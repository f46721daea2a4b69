// Package common holds constants and small helpers shared by the picdrop
// client packages.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on every
	// protected request. The credential never appears in a URL.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// CacheBustParam is the query parameter appended to protected fetches so
	// a reused reference is never answered from a cache.
	CacheBustParam = "_cb"
)
