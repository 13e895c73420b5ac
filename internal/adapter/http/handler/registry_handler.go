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

// RegistryHandler handles service registry endpoints.
type RegistryHandler struct {
	registrySvc ports.RegistryService
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registrySvc ports.RegistryService) *RegistryHandler {
	return &RegistryHandler{registrySvc: registrySvc}
}

// Register handles POST /api/v1/services. The authenticated caller becomes
// the service owner.
func (h *RegistryHandler) Register(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.RegisterServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	svc, err := h.registrySvc.Register(c.Request.Context(), ports.RegisterServiceRequest{
		ID:            req.ID,
		BillingPeriod: time.Duration(req.BillingPeriodSeconds) * time.Second,
		Price:         req.Price,
		Owner:         account,
		DependsOn:     req.DependsOn,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toServiceResponse(svc))
}

// Get handles GET /api/v1/services/:id.
func (h *RegistryHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("service id must be a positive integer"))
		return
	}

	svc, err := h.registrySvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toServiceResponse(svc))
}

func toServiceResponse(s *domain.Service) dto.ServiceResponse {
	return dto.ServiceResponse{
		ID:                   s.ID,
		BillingPeriodSeconds: int64(s.BillingPeriod.Seconds()),
		Price:                s.Price,
		Owner:                s.Owner.String(),
		DependsOn:            toNodeResponses(s.DependsOn),
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
	}
}

func toNodeResponses(nodes []domain.ServiceNode) []dto.ServiceNodeResponse {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]dto.ServiceNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, dto.ServiceNodeResponse{
			ID:        n.ID,
			Price:     n.Price,
			Owner:     n.Owner.String(),
			DependsOn: toNodeResponses(n.DependsOn),
		})
	}
	return out
}
