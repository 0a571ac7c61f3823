package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/kit/log"

	"github.com/opencrmhq/chatbridge/internal/service"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/opencrmhq/chatbridge/pkg/response"
)

// WebhookHandler receives platform webhook deliveries. The contract with
// the sender is a fast acknowledgement: a bad payload is logged, counted
// against webhook health and still answered with 200 so the platform does
// not retry what will never parse. Only an unknown webhook token is
// rejected outright.
type WebhookHandler struct {
	ingestService *service.IngestService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingestService *service.IngestService) *WebhookHandler {
	return &WebhookHandler{ingestService: ingestService}
}

// Receive handles a webhook delivery on /webhook/platform/:token
func (h *WebhookHandler) Receive(ctx context.Context, c *app.RequestContext) {
	token := c.Param("token")
	if token == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrWebhookTokenWrong)
		return
	}

	tenant, err := h.ingestService.ResolveTenant(ctx, token)
	if err != nil {
		log.CtxError(ctx, "resolve webhook tenant failed: %v", err)
		response.ErrorWithCode(ctx, c, errcode.ErrInternalServer)
		return
	}
	if tenant == nil {
		response.ErrorWithCode(ctx, c, errcode.ErrWebhookTokenWrong)
		return
	}

	raw := c.Request.Body()
	outcome, err := h.ingestService.Ingest(ctx, tenant.Id, raw)
	if err != nil {
		// Acknowledge anyway; a payload that cannot be processed now
		// will not parse on redelivery either
		response.Success(ctx, c, map[string]string{"status": "discarded"})
		return
	}

	response.Success(ctx, c, map[string]string{"status": outcome.String()})
}
