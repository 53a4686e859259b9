package cache

import (
	"fmt"
	"strings"
)

// Policy governs whether and how the result store is consulted.
type Policy int

const (
	// NoCache never reads or writes the store and never deduplicates.
	NoCache Policy = iota

	// CacheFirst serves a stored value without touching the network;
	// on a miss it fetches and populates the store.
	CacheFirst

	// CacheAndNetwork serves a stored value immediately but still fetches
	// and overwrites it on completion.
	CacheAndNetwork
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case NoCache:
		return "no-cache"
	case CacheFirst:
		return "cache-first"
	case CacheAndNetwork:
		return "cache-and-network"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no-cache", "nocache":
		return NoCache, nil
	case "cache-first", "cachefirst":
		return CacheFirst, nil
	case "cache-and-network", "cacheandnetwork":
		return CacheAndNetwork, nil
	default:
		return NoCache, fmt.Errorf("unknown cache policy %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so policies can be read
// from environment configuration.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
