package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/kit/log"

	"github.com/opencrmhq/chatbridge/pkg/ratelimit"
	"github.com/opencrmhq/chatbridge/pkg/response"
)

// RateLimit bounds request volume per key. keyFn derives the caller
// identity from the request; typically the webhook token or client IP.
func RateLimit(limiter *ratelimit.Limiter, keyFn func(c *app.RequestContext) string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		key := keyFn(c)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := limiter.Check(ctx, key)
		if err != nil {
			// Fail open, the limiter already returned allowed=true
			log.CtxWarn(ctx, "rate limit check degraded: key=%s, error=%v", key, err)
		}
		if !allowed {
			response.TooManyRequests(ctx, c)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
