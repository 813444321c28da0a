package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWalletAddress(t *testing.T) {
	friendly := "EQ" + strings.Repeat("A", 46)
	nonBounce := "UQ" + strings.Repeat("b_-", 15) + "x"
	raw := "0:" + strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"bounceable", friendly, false},
		{"non-bounceable", nonBounce, false},
		{"raw", raw, false},
		{"raw upper hex", "0:" + strings.Repeat("AB", 32), false},
		{"empty", "", true},
		{"short friendly", "EQ" + strings.Repeat("A", 45), true},
		{"long friendly", "EQ" + strings.Repeat("A", 47), true},
		{"bad prefix", "KQ" + strings.Repeat("A", 46), true},
		{"bad charset", "EQ" + strings.Repeat("+", 46), true},
		{"masterchain raw", "-1:" + strings.Repeat("ab", 32), true},
		{"short raw", "0:" + strings.Repeat("ab", 31), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWalletAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTxHash(t *testing.T) {
	assert.NoError(t, ValidateTxHash("abc123"))
	assert.NoError(t, ValidateTxHash(strings.Repeat("f", 64)))
	assert.NoError(t, ValidateTxHash("te6cck+/==_-"))

	assert.Error(t, ValidateTxHash(""))
	assert.Error(t, ValidateTxHash("abc"))
	assert.Error(t, ValidateTxHash(strings.Repeat("a", MaxTxHashLength+1)))
	assert.Error(t, ValidateTxHash("abc 123"))
	assert.Error(t, ValidateTxHash("abc;drop"))
}

func TestValidateReferralCode(t *testing.T) {
	assert.NoError(t, ValidateReferralCode("AB12CD34"))
	assert.Error(t, ValidateReferralCode(" "))
	assert.Error(t, ValidateReferralCode("AB-12"))
	assert.Error(t, ValidateReferralCode(strings.Repeat("A", MaxReferralCodeLength+1)))
}

func TestAmountHelpers(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(decimal.RequireFromString("0.000000001"), "amount"))
	assert.Error(t, ValidatePositiveAmount(decimal.Zero, "amount"))
	assert.Error(t, ValidatePositiveAmount(decimal.NewFromInt(-1), "amount"))

	min, max := decimal.NewFromInt(1), decimal.NewFromInt(10)
	assert.NoError(t, ValidateAmountRange(decimal.NewFromInt(1), min, max, "amount"))
	assert.NoError(t, ValidateAmountRange(decimal.NewFromInt(10), min, max, "amount"))
	assert.Error(t, ValidateAmountRange(decimal.RequireFromString("0.99"), min, max, "amount"))
	assert.Error(t, ValidateAmountRange(decimal.RequireFromString("10.01"), min, max, "amount"))

	d, err := ParseAmount(" 12.5 ", "amount")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.5")))
	_, err = ParseAmount("abc", "amount")
	assert.Error(t, err)
	_, err = ParseAmount("", "amount")
	assert.Error(t, err)
	_, err = ParseAmount("1.0000000005", "amount")
	assert.Error(t, err)
	_, err = ParseAmount("1e40", "amount")
	assert.Error(t, err)
}

func TestValidateAmountScale(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"1", true},
		{"0.000000001", true},
		{"1.500000000000", true},
		{"-20.123456789", true},
		{"999999999999999999.999999999", true},
		{"1.0000000005", false},
		{"-0.0000000001", false},
		{"1e18", false},
		{"-1e18", false},
		{"1e40", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmountScale(decimal.RequireFromString(tt.amount), "amount")
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegisterTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterTags(v))

	type payload struct {
		Wallet string `validate:"required,tonaddr"`
		Hash   string `validate:"required,txhash"`
		Amount string `validate:"required,decimal"`
	}

	ok := payload{Wallet: "0:" + strings.Repeat("0", 64), Hash: "abc123", Amount: "1.5"}
	assert.NoError(t, v.Struct(ok))

	bad := payload{Wallet: "nope", Hash: "x", Amount: "one"}
	err := v.Struct(bad)
	require.Error(t, err)
	assert.Len(t, err.(validator.ValidationErrors), 3)

	precise := payload{Wallet: ok.Wallet, Hash: ok.Hash, Amount: "0.0000000001"}
	assert.Error(t, v.Struct(precise))
}
