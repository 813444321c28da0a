package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
)

const (
	MinTxHashLength       = 6
	MaxTxHashLength       = 128
	MaxAdminNoteLength    = 500
	ReferralCodeLength    = 8
	MaxReferralCodeLength = 32

	// AmountScale is the number of fractional digits balances are stored with.
	AmountScale = 9
)

// MaxAmount is the exclusive upper bound of any single amount.
var MaxAmount = decimal.New(1, 18)

var (
	// TON wallet address: user-friendly bounceable/non-bounceable or raw basechain form.
	walletAddressRegex = regexp.MustCompile(`^(EQ[A-Za-z0-9_-]{46}|UQ[A-Za-z0-9_-]{46}|0:[a-fA-F0-9]{64})$`)
	txHashRegex        = regexp.MustCompile(`^[A-Za-z0-9_+/=-]+$`)
	referralCodeRegex  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ValidateWalletAddress checks the TON address wire format.
func ValidateWalletAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}
	if !walletAddressRegex.MatchString(addr) {
		return fmt.Errorf("wallet address must be EQ/UQ + 46 base64url characters or 0: + 64 hex characters")
	}
	if strings.HasPrefix(addr, "0:") {
		a, err := address.ParseRawAddr(addr)
		if err != nil {
			return fmt.Errorf("invalid raw wallet address: %w", err)
		}
		if a.Workchain() != 0 {
			return fmt.Errorf("wallet address must be on the basechain")
		}
	}
	return nil
}

// IsValidWalletAddress is the boolean form of ValidateWalletAddress.
func IsValidWalletAddress(addr string) bool {
	return ValidateWalletAddress(addr) == nil
}

// ValidateTxHash checks the deposit transaction hash format.
func ValidateTxHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("tx hash cannot be empty")
	}
	if len(hash) < MinTxHashLength {
		return fmt.Errorf("tx hash must be at least %d characters long", MinTxHashLength)
	}
	if len(hash) > MaxTxHashLength {
		return fmt.Errorf("tx hash cannot exceed %d characters", MaxTxHashLength)
	}
	if !txHashRegex.MatchString(hash) {
		return fmt.Errorf("tx hash must contain only hex or base64 characters")
	}
	return nil
}

// ValidateReferralCode checks a referral code supplied by a user.
func ValidateReferralCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("referral code cannot be empty")
	}
	if len(code) > MaxReferralCodeLength {
		return fmt.Errorf("referral code cannot exceed %d characters", MaxReferralCodeLength)
	}
	if !referralCodeRegex.MatchString(code) {
		return fmt.Errorf("referral code must contain only letters and digits")
	}
	return nil
}

// ValidateAdminNote bounds the moderator note.
func ValidateAdminNote(note string) error {
	if len(note) > MaxAdminNoteLength {
		return fmt.Errorf("note cannot exceed %d characters", MaxAdminNoteLength)
	}
	return nil
}

// ValidatePositiveAmount requires amount > 0.
func ValidatePositiveAmount(amount decimal.Decimal, fieldName string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	return nil
}

// ValidateAmountRange requires min ≤ amount ≤ max.
func ValidateAmountRange(amount, min, max decimal.Decimal, fieldName string) error {
	if amount.LessThan(min) {
		return fmt.Errorf("%s must be at least %s", fieldName, min)
	}
	if amount.GreaterThan(max) {
		return fmt.Errorf("%s cannot exceed %s", fieldName, max)
	}
	return nil
}

// ValidateAmountScale rejects amounts with more than AmountScale fractional
// digits or a magnitude of MaxAmount or more. Sign is not checked.
func ValidateAmountScale(amount decimal.Decimal, fieldName string) error {
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%s cannot have more than %d decimal places", fieldName, AmountScale)
	}
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		return fmt.Errorf("%s must be less than %s", fieldName, MaxAmount)
	}
	return nil
}

// ParseAmount parses a decimal amount from its string wire form.
func ParseAmount(raw, fieldName string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s cannot be empty", fieldName)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s is not a valid number", fieldName)
	}
	if err := ValidateAmountScale(d, fieldName); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// RegisterTags adds the domain tags (`tonaddr`, `txhash`, `decimal`) to a validator instance,
// typically gin's binding engine.
func RegisterTags(v *validator.Validate) error {
	if err := v.RegisterValidation("tonaddr", func(fl validator.FieldLevel) bool {
		return IsValidWalletAddress(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("txhash", func(fl validator.FieldLevel) bool {
		return ValidateTxHash(fl.Field().String()) == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && ValidateAmountScale(d, fl.FieldName()) == nil
	})
}
