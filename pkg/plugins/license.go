package plugins

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Authorizer decides whether a licensed feature token is available
type Authorizer interface {
	IsFeatureAuthorized(token string) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface
type AuthorizerFunc func(token string) bool

// IsFeatureAuthorized calls f(token)
func (f AuthorizerFunc) IsFeatureAuthorized(token string) bool {
	return f(token)
}

// AllowAll authorizes every feature token
var AllowAll Authorizer = AuthorizerFunc(func(string) bool { return true })

// FeatureSet authorizes a fixed set of feature tokens
type FeatureSet map[string]struct{}

// NewFeatureSet creates a FeatureSet from tokens
func NewFeatureSet(tokens ...string) FeatureSet {
	s := make(FeatureSet, len(tokens))
	for _, t := range tokens {
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// IsFeatureAuthorized reports whether token is in the set
func (s FeatureSet) IsFeatureAuthorized(token string) bool {
	_, ok := s[token]
	return ok
}

// CachedAuthorizer memoizes answers of a slower authorizer for a TTL
type CachedAuthorizer struct {
	inner Authorizer
	cache *lru.LRU[string, bool]
}

// NewCachedAuthorizer wraps inner with an LRU of size entries, each
// kept for ttl.
func NewCachedAuthorizer(inner Authorizer, size int, ttl time.Duration) *CachedAuthorizer {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &CachedAuthorizer{
		inner: inner,
		cache: lru.NewLRU[string, bool](size, nil, ttl),
	}
}

// IsFeatureAuthorized returns the cached answer or asks the inner authorizer
func (a *CachedAuthorizer) IsFeatureAuthorized(token string) bool {
	if ok, hit := a.cache.Get(token); hit {
		return ok
	}
	if a.inner == nil {
		return false
	}

	ok := a.inner.IsFeatureAuthorized(token)
	a.cache.Add(token, ok)
	return ok
}

// Purge drops every cached answer
func (a *CachedAuthorizer) Purge() {
	a.cache.Purge()
}
