package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/opencrmhq/chatbridge/pkg/apikey"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/opencrmhq/chatbridge/pkg/response"
)

const (
	// ApiKeyHeader is the header key for machine-to-machine auth
	ApiKeyHeader = "X-Api-Key"
)

// ApiKeyAuth authenticates machine callers via X-Api-Key and checks the
// key carries the required scope. On success the key's tenant Id is
// stored in context under TenantIdKey.
func ApiKeyAuth(validator *apikey.Validator, scope string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		rawKey := string(c.GetHeader(ApiKeyHeader))
		if rawKey == "" {
			response.ErrorWithCode(ctx, c, errcode.ErrApiKeyInvalid)
			c.Abort()
			return
		}

		record, err := validator.Validate(ctx, rawKey, scope)
		if err != nil {
			response.ErrorWithCode(ctx, c, toApiKeyError(err))
			c.Abort()
			return
		}

		c.Set(TenantIdKey, record.TenantId)
		c.Next(ctx)
	}
}

func toApiKeyError(err error) *errcode.Error {
	if e, ok := err.(*errcode.Error); ok {
		return e
	}
	return errcode.ErrApiKeyInvalid
}
