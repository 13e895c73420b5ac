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

// BillingHandler handles settlement endpoints.
type BillingHandler struct {
	billingSvc ports.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingSvc ports.BillingService) *BillingHandler {
	return &BillingHandler{billingSvc: billingSvc}
}

// Settle handles POST /api/v1/billing/settle. The charged account is always
// the authenticated caller.
func (h *BillingHandler) Settle(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.billingSvc.Settle(c.Request.Context(), account, req.ServiceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.SettleResponse{Due: result.Due}
	if result.Settlement != nil {
		s := toSettlementResponse(result.Settlement)
		resp.Settlement = &s
	}
	response.OK(c, resp)
}

// Collect handles POST /api/v1/billing/collect/:service_id. Any account may
// trigger collection; funds only ever flow from subscribers to owners.
func (h *BillingHandler) Collect(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Param("service_id"), 10, 64)
	if err != nil || serviceID <= 0 {
		response.Error(c, apperror.Validation("service id must be a positive integer"))
		return
	}

	report, err := h.billingSvc.Collect(c.Request.Context(), serviceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.CollectResponse{
		ServiceID: report.ServiceID,
		Settled:   report.Settled,
		Skipped:   report.Skipped,
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, dto.CollectFailureResponse{
			AccountID: f.AccountID.String(),
			Reason:    f.Reason,
		})
	}
	response.OK(c, resp)
}

// History handles GET /api/v1/billing/settlements?limit=.
func (h *BillingHandler) History(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	settlements, err := h.billingSvc.History(c.Request.Context(), account, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.SettlementResponse, 0, len(settlements))
	for i := range settlements {
		out = append(out, toSettlementResponse(&settlements[i]))
	}
	response.OK(c, out)
}

func toSettlementResponse(s *domain.Settlement) dto.SettlementResponse {
	payouts := make([]dto.PayoutResponse, 0, len(s.Payouts))
	for _, p := range s.Payouts {
		payouts = append(payouts, dto.PayoutResponse{
			ServiceID: p.ServiceID,
			Owner:     p.Owner.String(),
			Amount:    p.Amount,
		})
	}
	return dto.SettlementResponse{
		ID:              s.ID.String(),
		ServiceID:       s.ServiceID,
		Currency:        s.Currency,
		Periods:         s.Periods,
		ReferenceAmount: s.ReferenceAmount,
		DebitedAmount:   s.DebitedAmount,
		Payouts:         payouts,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}
