package handler

import (
	"recurring-billing-engine/internal/adapter/http/dto"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/pkg/apperror"
	"recurring-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WhitelistHandler handles currency whitelist endpoints.
type WhitelistHandler struct {
	whitelistSvc ports.WhitelistService
}

// NewWhitelistHandler creates a new WhitelistHandler.
func NewWhitelistHandler(whitelistSvc ports.WhitelistService) *WhitelistHandler {
	return &WhitelistHandler{whitelistSvc: whitelistSvc}
}

// Set handles PUT /api/v1/whitelist.
func (h *WhitelistHandler) Set(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.WhitelistSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.whitelistSvc.SetRoute(c.Request.Context(), account, req.Currency, req.Route); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WhitelistResponse{Currency: req.Currency, Route: req.Route})
}

// Delete handles DELETE /api/v1/whitelist/:currency.
func (h *WhitelistHandler) Delete(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	currency := c.Param("currency")
	if err := h.whitelistSvc.ClearRoute(c.Request.Context(), account, currency); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"currency": currency, "whitelisted": false})
}

// Get handles GET /api/v1/whitelist/:currency.
func (h *WhitelistHandler) Get(c *gin.Context) {
	route, err := h.whitelistSvc.GetRoute(c.Request.Context(), c.Param("currency"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WhitelistResponse{Currency: route.Currency, Route: route.Route})
}
