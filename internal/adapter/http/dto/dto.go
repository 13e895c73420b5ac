package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// DepositRequest is the request body for an escrow deposit.
type DepositRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency" binding:"required,min=2,max=16,safe_id"`
}

// WithdrawRequest is the request body for an escrow withdrawal.
type WithdrawRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency" binding:"required,min=2,max=16,safe_id"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// RegisterServiceRequest is the request body for service registration.
type RegisterServiceRequest struct {
	ID                   int64   `json:"id" binding:"required,gt=0"`
	BillingPeriodSeconds int64   `json:"billing_period_seconds" binding:"required,gt=0"`
	Price                int64   `json:"price" binding:"required,gt=0"`
	DependsOn            []int64 `json:"depends_on,omitempty"`
}

// ServiceNodeResponse is one node of a service's dependency snapshot.
type ServiceNodeResponse struct {
	ID        int64                 `json:"id"`
	Price     int64                 `json:"price"`
	Owner     string                `json:"owner"`
	DependsOn []ServiceNodeResponse `json:"depends_on,omitempty"`
}

// ServiceResponse is the response body for a registered service.
type ServiceResponse struct {
	ID                   int64                 `json:"id"`
	BillingPeriodSeconds int64                 `json:"billing_period_seconds"`
	Price                int64                 `json:"price"`
	Owner                string                `json:"owner"`
	DependsOn            []ServiceNodeResponse `json:"depends_on,omitempty"`
	CreatedAt            string                `json:"created_at"`
}

// WhitelistSetRequest is the request body for whitelisting a currency.
type WhitelistSetRequest struct {
	Currency string `json:"currency" binding:"required,min=2,max=16,safe_id"`
	Route    string `json:"route" binding:"required,min=1,max=100,safe_id"`
}

// WhitelistResponse is the response for a whitelist lookup.
type WhitelistResponse struct {
	Currency string `json:"currency"`
	Route    string `json:"route"`
}

// SubscribeRequest is the request body for creating a subscription.
type SubscribeRequest struct {
	ServiceID int64  `json:"service_id" binding:"required,gt=0"`
	Currency  string `json:"currency" binding:"required,min=2,max=16,safe_id"`
}

// SubscriptionResponse is the response body for one subscription.
type SubscriptionResponse struct {
	ServiceID   int64  `json:"service_id"`
	Currency    string `json:"currency"`
	LastSettled string `json:"last_settled"`
	CreatedAt   string `json:"created_at"`
}

// SettleRequest is the request body for settling one subscription.
type SettleRequest struct {
	ServiceID int64 `json:"service_id" binding:"required,gt=0"`
}

// PayoutResponse is one owner credit inside a settlement.
type PayoutResponse struct {
	ServiceID int64  `json:"service_id"`
	Owner     string `json:"owner"`
	Amount    int64  `json:"amount"`
}

// SettlementResponse is the response body for one settlement journal entry.
type SettlementResponse struct {
	ID              string           `json:"id"`
	ServiceID       int64            `json:"service_id"`
	Currency        string           `json:"currency"`
	Periods         int64            `json:"periods"`
	ReferenceAmount int64            `json:"reference_amount"`
	DebitedAmount   int64            `json:"debited_amount"`
	Payouts         []PayoutResponse `json:"payouts"`
	CreatedAt       string           `json:"created_at"`
}

// SettleResponse is the response body for a settle call.
type SettleResponse struct {
	Due        bool                `json:"due"`
	Settlement *SettlementResponse `json:"settlement,omitempty"`
}

// CollectFailureResponse records one subscriber whose settlement failed.
type CollectFailureResponse struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// CollectResponse is the response body for a collection run.
type CollectResponse struct {
	ServiceID int64                    `json:"service_id"`
	Settled   int                      `json:"settled"`
	Skipped   int                      `json:"skipped"`
	Failures  []CollectFailureResponse `json:"failures,omitempty"`
}
