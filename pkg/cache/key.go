package cache

import (
	"github.com/Sternrassler/reqstate/pkg/descriptor"
)

// KeyFor derives the cache key of a descriptor under the given policy.
// It returns false when the policy is NoCache or no descriptor is given,
// meaning the request takes no part in caching or deduplication.
//
// The key is the descriptor URL with its params in canonical order, so
// descriptors that differ only in param ordering share one key:
//
//	https://api.example.com/items?order=asc&page=2
func KeyFor(policy Policy, d *descriptor.Descriptor) (string, bool) {
	if d == nil || policy == NoCache {
		return "", false
	}
	return d.BuildURL(), true
}
