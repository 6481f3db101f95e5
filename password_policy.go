package auth

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// PasswordSymbols lists the characters that satisfy the special character rule
const PasswordSymbols = "!@#$%^&*"

var (
	passwordUpper  = regexp.MustCompile(`[A-Z]`)
	passwordLower  = regexp.MustCompile(`[a-z]`)
	passwordDigit  = regexp.MustCompile(`[0-9]`)
	passwordSymbol = regexp.MustCompile(`[!@#$%^&*]`)

	// letters, digits and PasswordSymbols only
	passwordCharset = regexp.MustCompile(`^[A-Za-z0-9!@#$%^&*]+$`)

	emailPattern = regexp.MustCompile(`^[\w.+-]+@([\w-]+\.)+[\w-]{2,}$`)
)

type passwordRule struct {
	reason string
	rules  []validation.Rule
}

// rules are checked in order, the first failure wins
var passwordRules = []passwordRule{
	{
		reason: "length",
		rules: []validation.Rule{
			validation.Required.Error("Password must be at least 8 characters long"),
			validation.Length(MinPasswordLength, 0).Error("Password must be at least 8 characters long"),
		},
	},
	{
		reason: "uppercase",
		rules:  []validation.Rule{validation.Match(passwordUpper).Error("Password must contain at least 1 uppercase letter")},
	},
	{
		reason: "lowercase",
		rules:  []validation.Rule{validation.Match(passwordLower).Error("Password must contain at least 1 lowercase letter")},
	},
	{
		reason: "digit",
		rules:  []validation.Rule{validation.Match(passwordDigit).Error("Password must contain at least 1 number")},
	},
	{
		reason: "symbol",
		rules:  []validation.Rule{validation.Match(passwordSymbol).Error("Password must contain at least 1 special character (!@#$%^&*)")},
	},
	{
		reason: "charset",
		rules:  []validation.Rule{validation.Match(passwordCharset).Error("Password may only contain letters, numbers and !@#$%^&*")},
	},
}

// ValidatePasswordPolicy checks password against the password rules and
// returns a WEAK_PASSWORD error naming the first rule that failed.
func ValidatePasswordPolicy(password string) error {
	for _, pr := range passwordRules {
		if err := validation.Validate(password, pr.rules...); err != nil {
			return deriveMessage(ErrWeakPassword, nil, err.Error()).
				WithMetadata(map[string]any{MetadataReason: pr.reason})
		}
	}
	return nil
}

// IsValidEmail reports whether email looks like an address
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
