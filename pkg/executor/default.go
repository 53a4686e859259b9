package executor

import (
	"context"

	"github.com/Sternrassler/reqstate/pkg/cache"
	"github.com/Sternrassler/reqstate/pkg/descriptor"
	"github.com/Sternrassler/reqstate/pkg/transport"
)

// Default is the process-wide executor used by requests that are not given
// one explicitly. Its store and registry live for the whole process.
var Default = New(transport.NewHTTP(transport.Config{}), cache.NewMemoryStore())

// WarmupCache pre-populates the default executor for d. It is fire and
// forget and may be called before any request exists.
func WarmupCache(d *descriptor.Descriptor) *Handle {
	return Default.Warmup(context.Background(), d, cache.CacheFirst)
}
