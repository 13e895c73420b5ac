package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient escrow balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrAmountOverflow() *AppError {
	return New("LED_003", "Balance arithmetic overflow", http.StatusUnprocessableEntity)
}

// ---- Service Registry (REG) ----

func ErrInvalidService() *AppError {
	return New("REG_001", "Service id, billing period and price must be greater than zero", http.StatusBadRequest)
}

func ErrServiceNotFound(id int64) *AppError {
	return New("REG_002", fmt.Sprintf("Service %d not found", id), http.StatusNotFound)
}

// ---- Token Whitelist (WL) ----

func ErrNotWhitelisted(currency string) *AppError {
	return New("WL_001", fmt.Sprintf("Currency %s has no oracle route", currency), http.StatusUnprocessableEntity)
}

func ErrUnauthorized() *AppError {
	return New("WL_002", "Caller is not the whitelist administrator", http.StatusForbidden)
}

// ---- Subscriptions & Billing (BIL) ----

func ErrNotSubscribed() *AppError {
	return New("BIL_001", "No subscription for this account and service", http.StatusNotFound)
}

func ErrOracleQuote(err error) *AppError {
	return Wrap("BIL_002", "Price oracle quote failed", http.StatusBadGateway, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
