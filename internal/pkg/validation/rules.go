package validation

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// UsernamePattern allows letters, digits and underscores
	UsernamePattern = `^[a-zA-Z0-9_]+$`

	// PasswordSpecials are the special characters a strong password may use
	PasswordSpecials = "@$!%*?&#^()-_=+[]{};:,.<>/~"

	// Password length bounds
	PasswordMinLength = 8
	PasswordMaxLength = 128

	// Username length bounds
	UsernameMinLength = 3
	UsernameMaxLength = 30
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Username *regexp.Regexp
}{
	Username: regexp.MustCompile(UsernamePattern),
}

// PasswordIssues lists the strength rules password breaks, empty when it is strong.
func PasswordIssues(password string) []string {
	var issues []string
	if len(password) < PasswordMinLength {
		issues = append(issues, fmt.Sprintf("at least %d characters", PasswordMinLength))
	}
	if len(password) > PasswordMaxLength {
		issues = append(issues, fmt.Sprintf("at most %d characters", PasswordMaxLength))
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case isSpecial(r):
			special = true
		}
	}
	if !lower {
		issues = append(issues, "a lowercase letter")
	}
	if !upper {
		issues = append(issues, "an uppercase letter")
	}
	if !digit {
		issues = append(issues, "a number")
	}
	if !special {
		issues = append(issues, "a special character")
	}
	return issues
}

func isSpecial(r rune) bool {
	for _, s := range PasswordSpecials {
		if r == s {
			return true
		}
	}
	return false
}

// IsStrongPassword reports whether password satisfies every strength rule.
func IsStrongPassword(password string) bool {
	return len(PasswordIssues(password)) == 0
}

// IsValidUsername checks the username charset and length.
func IsValidUsername(username string) bool {
	n := len(username)
	return n >= UsernameMinLength && n <= UsernameMaxLength && CompiledPatterns.Username.MatchString(username)
}

// Register adds the custom tags to v.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register strongpassword: %w", err)
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return CompiledPatterns.Username.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register username: %w", err)
	}
	return nil
}

// RegisterWithGin installs the custom tags on gin's default validator.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}
