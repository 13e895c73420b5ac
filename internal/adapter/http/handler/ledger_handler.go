package handler

import (
	"recurring-billing-engine/internal/adapter/http/dto"
	"recurring-billing-engine/internal/adapter/http/middleware"
	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/pkg/apperror"
	"recurring-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles escrow balance endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// accountID extracts the authenticated account id set by JWTAuth.
func accountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return v.(uuid.UUID), true
}

// Deposit handles POST /api/v1/ledger/deposit.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	bal, err := h.ledgerSvc.Deposit(c.Request.Context(), account, req.Currency, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(bal))
}

// Withdraw handles POST /api/v1/ledger/withdraw.
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	bal, err := h.ledgerSvc.Withdraw(c.Request.Context(), account, req.Currency, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(bal))
}

// Balance handles GET /api/v1/ledger/balance?currency=.
func (h *LedgerHandler) Balance(c *gin.Context) {
	account, ok := accountID(c)
	if !ok {
		return
	}

	currency := c.Query("currency")
	if currency == "" {
		response.Error(c, apperror.Validation("currency query parameter is required"))
		return
	}

	bal, err := h.ledgerSvc.Balance(c.Request.Context(), account, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBalanceResponse(bal))
}

func toBalanceResponse(b *domain.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		Currency: b.Currency,
		Amount:   b.Amount,
	}
}
