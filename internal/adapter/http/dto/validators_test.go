package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username: "  alice  ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "pass1234", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := WhitelistSetRequest{
		Currency: "USDC",
		Route:    "pair<script>alert('x')</script>",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Route, "&lt;script&gt;")
	assert.NotContains(t, req.Route, "<script>")
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"USDC",
		"WEGLD",
		"pair-usdc-wegld",
		"route_7.main",
		"simple123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"US DC",       // space
		"pair<001>",   // angle brackets
		"route;DROP",  // semicolon
		"",            // empty
		"hello world", // space
		"pair\nroute", // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestSanitizeStruct_DepositRequest(t *testing.T) {
	req := DepositRequest{
		Amount:   100,
		Currency: " USDC ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "USDC", req.Currency)
	assert.Equal(t, int64(100), req.Amount)
}
