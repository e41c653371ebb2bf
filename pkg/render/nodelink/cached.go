package nodelink

import (
	"context"
	"time"

	"github.com/matzehuels/docwalk/pkg/cache"
)

// SVGTTL is how long a rendered SVG stays in the cache.
const SVGTTL = 24 * time.Hour

// RenderSVGCached renders dot like [RenderSVG], serving repeated inputs from
// c. Cache failures fall back to rendering. A nil c disables caching.
func RenderSVGCached(ctx context.Context, c cache.Cache, dot string) ([]byte, error) {
	if c == nil {
		return RenderSVG(ctx, dot)
	}
	key := cache.Key("svg", dot)
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		return data, nil
	}
	data, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, key, data, SVGTTL)
	return data, nil
}
