// Package cache provides the result cache, cache policies and cache key
// derivation for reqstate.
//
// The result cache maps a cache key to the last successful payload fetched
// for it. It is not a general purpose cache: there is no eviction, no TTL and
// no size bound. Entries live as long as the backing store and are removed
// only through Store.Clear.
//
// # Policies
//
//   - NoCache: the store is never read or written and requests are never
//     deduplicated.
//   - CacheFirst: a stored payload is served and the network is skipped;
//     on a miss the payload is fetched and stored.
//   - CacheAndNetwork: a stored payload is served immediately, and a network
//     refresh still runs and overwrites it.
//
// # Keys
//
//	key, ok := cache.KeyFor(cache.CacheFirst, descriptor.URL("https://api.example.com/items"))
//	// key == "https://api.example.com/items", ok == true
//
// # Backends
//
//	store := cache.NewMemoryStore()
//
//	// or Redis
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//
//	// or an embedded SQLite file
//	store, err := cache.NewSQLiteStore("results.db")
//
// # Metrics
//
//   - reqstate_cache_hits_total{backend} - Cache hits
//   - reqstate_cache_misses_total - Cache misses
//   - reqstate_cache_errors_total{operation} - Store operation errors
package cache
