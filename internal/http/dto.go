package http

import "time"

// RegisterRequest is the body of POST /accounts/me. Both fields are optional.
type RegisterRequest struct {
	WalletAddress string `json:"wallet_address" binding:"omitempty,tonaddr" example:"UQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG"`
	ReferralCode  string `json:"referral_code" binding:"omitempty,max=32,alphanum" example:"A1B2C3D4"`
}

// RegisterResponse reports whether the account was created by this call.
type RegisterResponse struct {
	Account interface{} `json:"account"`
	Created bool        `json:"created" example:"true"`
}

// ReferrerRequest is the body of POST /accounts/me/referrer.
type ReferrerRequest struct {
	Code string `json:"code" binding:"required,max=32,alphanum" example:"A1B2C3D4"`
}

// DepositRequest is the body of POST /deposits.
type DepositRequest struct {
	Amount string `json:"amount" binding:"required,decimal" example:"10.5"`
	TxHash string `json:"tx_hash" binding:"required,txhash" example:"b5a9f2c1d0e3"`
}

// WithdrawalRequest is the body of POST /withdrawals.
type WithdrawalRequest struct {
	Amount        string `json:"amount" binding:"required,decimal" example:"25"`
	WalletAddress string `json:"wallet_address" binding:"required,tonaddr" example:"UQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG"`
	WithdrawType  string `json:"withdraw_type" binding:"required,oneof=profit referral balance" example:"profit" enums:"profit,referral,balance"`
}

// SwapRequest is the body of POST /swaps.
type SwapRequest struct {
	FromCurrency string `json:"from_currency" binding:"required" example:"TON" enums:"TON,TERA"`
	Amount       string `json:"amount" binding:"required,decimal" example:"100"`
}

// ModerationRequest is the optional body of approve/reject routes.
type ModerationRequest struct {
	Note string `json:"note" binding:"max=500" example:"tx verified"`
}

// AdjustRequest is the body of POST /admin/accounts/{id}/adjust.
type AdjustRequest struct {
	Kind  string `json:"kind" binding:"required" example:"main" enums:"main,tera,mining,earning_profit,earning_referral"`
	Delta string `json:"delta" binding:"required,decimal" example:"-2.5"`
}

// StopMiningResponse carries the settled profit.
type StopMiningResponse struct {
	Earned string `json:"earned" example:"0.5"`
}

// AdjustResponse carries the resulting balance.
type AdjustResponse struct {
	Kind    string `json:"kind" example:"main"`
	Balance string `json:"balance" example:"97.5"`
}

// HealthResponse is returned by /health and /ready.
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service" example:"tera-rewards-backend"`
}
