package handler

import (
	"strconv"
	"time"

	"recurring-billing-engine/internal/adapter/http/dto"
	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/pkg/apperror"
	"recurring-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler handles subscription lifecycle endpoints.
type SubscriptionHandler struct {
	subSvc ports.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subSvc ports.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc}
}

// Subscribe handles POST /api/v1/subscriptions.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	sub, err := h.subSvc.Subscribe(c.Request.Context(), account, req.ServiceID, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toSubscriptionResponse(sub))
}

// Unsubscribe handles DELETE /api/v1/subscriptions/:service_id.
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	serviceID, err := strconv.ParseInt(c.Param("service_id"), 10, 64)
	if err != nil || serviceID <= 0 {
		response.Error(c, apperror.Validation("service id must be a positive integer"))
		return
	}

	if err := h.subSvc.Unsubscribe(c.Request.Context(), account, serviceID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"service_id": serviceID, "subscribed": false})
}

// List handles GET /api/v1/subscriptions.
func (h *SubscriptionHandler) List(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	subs, err := h.subSvc.List(c.Request.Context(), account)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionResponse(&subs[i]))
	}
	response.OK(c, out)
}

func toSubscriptionResponse(s *domain.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ServiceID:   s.ServiceID,
		Currency:    s.Currency,
		LastSettled: s.LastSettled.Format(time.RFC3339),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}
