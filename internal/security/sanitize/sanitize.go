// Package sanitize cleans untrusted text before it is stored or echoed back.
//
// The denylist patterns are a heuristic. HTML stripping is delegated to bluemonday and
// field formats to validator, the regexes only catch what those libraries do not model.
package sanitize

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// RiskLevel is a coarse severity derived from the checks that fired.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// FieldType selects format specific rules.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldUsername FieldType = "username"
	FieldPassword FieldType = "password"
	FieldURL      FieldType = "url"
)

const maxPasswordLength = 128

// Options controls which checks run. Zero value strips everything.
type Options struct {
	MaxLength        int
	AllowHTML        bool
	AllowScripts     bool
	AllowSQLPatterns bool
	// PreserveNewlines keeps \n, \r and \t when removing control characters.
	PreserveNewlines bool
	FieldType        FieldType
}

// Result is the outcome of Sanitize.
type Result struct {
	IsValid        bool      `json:"isValid"`
	SanitizedValue string    `json:"sanitizedValue"`
	Violations     []string  `json:"violations"`
	RiskLevel      RiskLevel `json:"riskLevel"`
}

var (
	scriptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b.*?</script\s*>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
		regexp.MustCompile(`(?i)data:text/html`),
		regexp.MustCompile(`(?i)vbscript:`),
	}

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

	sqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)('|\\')|(;|\\;)|(--)|(\s*(union|select|insert|delete|update|drop|create|alter|exec|execute)\s+)`),
		regexp.MustCompile(`(?i)(\s*(or|and)\s+\w+\s*=\s*\w+)`),
		regexp.MustCompile(`(/\*|\*/)`),
	}

	usernamePattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	usernameDisallowed   = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	emailDisallowed      = regexp.MustCompile(`[^a-zA-Z0-9._%+\-@]`)
	controlChars         = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	controlCharsNoSpaces = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// Sanitizer holds the reusable policy and validator.
type Sanitizer struct {
	policy   *bluemonday.Policy
	validate *validator.Validate
}

// New creates a Sanitizer.
func New() *Sanitizer {
	return &Sanitizer{
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(),
	}
}

var std = New()

// Sanitize runs the package level Sanitizer.
func Sanitize(input string, opts Options) Result {
	return std.Sanitize(input, opts)
}

// Text is a shorthand returning only the cleaned value for free text fields.
func Text(input string, maxLength int) string {
	return std.Sanitize(input, Options{
		MaxLength:        maxLength,
		AllowSQLPatterns: true,
		PreserveNewlines: true,
		FieldType:        FieldText,
	}).SanitizedValue
}

type run struct {
	value      string
	violations []string
	risk       RiskLevel
}

func (r *run) flag(violation string, risk RiskLevel) {
	r.violations = append(r.violations, violation)
	if risk.rank() > r.risk.rank() {
		r.risk = risk
	}
}

// Sanitize applies, in order: truncation, script stripping, HTML stripping, SQL pattern
// stripping, field rules, null byte removal and control character removal.
func (s *Sanitizer) Sanitize(input string, opts Options) Result {
	r := &run{value: input, risk: RiskLow}

	if opts.MaxLength > 0 {
		if runes := []rune(r.value); len(runes) > opts.MaxLength {
			r.value = string(runes[:opts.MaxLength])
			r.flag(fmt.Sprintf("Input exceeds maximum length of %d characters", opts.MaxLength), RiskMedium)
		}
	}

	if !opts.AllowScripts {
		for _, p := range scriptPatterns {
			if p.MatchString(r.value) {
				r.value = p.ReplaceAllString(r.value, "")
				r.flag("Potentially malicious script content detected", RiskHigh)
			}
		}
	}

	if !opts.AllowHTML && htmlTagPattern.MatchString(r.value) {
		r.value = s.stripHTML(r.value)
		r.flag("HTML tags are not allowed", RiskMedium)
	}

	if !opts.AllowSQLPatterns {
		for _, p := range sqlPatterns {
			if p.MatchString(r.value) {
				r.value = p.ReplaceAllString(r.value, "")
				r.flag("Potentially malicious SQL patterns detected", RiskHigh)
			}
		}
	}

	if opts.FieldType != "" {
		s.applyFieldRules(r, opts.FieldType)
	}

	if strings.ContainsRune(r.value, 0) {
		r.value = strings.ReplaceAll(r.value, "\x00", "")
		r.flag("Null bytes are not allowed", RiskHigh)
	}

	ctrl := controlChars
	if opts.PreserveNewlines {
		ctrl = controlCharsNoSpaces
	}
	if ctrl.MatchString(r.value) {
		r.value = ctrl.ReplaceAllString(r.value, "")
		r.flag("Control characters are not allowed", RiskMedium)
	}

	return Result{
		IsValid:        len(r.violations) == 0,
		SanitizedValue: strings.TrimSpace(r.value),
		Violations:     r.violations,
		RiskLevel:      r.risk,
	}
}

// stripHTML removes markup with bluemonday and turns its entity escaping back into text.
// Tags smuggled in as entities are removed on the second pass.
func (s *Sanitizer) stripHTML(value string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(value))
	return htmlTagPattern.ReplaceAllString(cleaned, "")
}

func (s *Sanitizer) applyFieldRules(r *run, field FieldType) {
	switch field {
	case FieldEmail:
		if r.value != "" && s.validate.Var(r.value, "email") != nil && emailDisallowed.MatchString(r.value) {
			r.value = emailDisallowed.ReplaceAllString(r.value, "")
			r.flag("Email contains invalid characters", RiskMedium)
		}

	case FieldUsername:
		if r.value != "" && !usernamePattern.MatchString(r.value) {
			r.value = usernameDisallowed.ReplaceAllString(r.value, "")
			r.flag("Username contains invalid characters", RiskMedium)
		}

	case FieldPassword:
		if runes := []rune(r.value); len(runes) > maxPasswordLength {
			r.value = string(runes[:maxPasswordLength])
			r.flag("Password is too long", RiskMedium)
		}

	case FieldURL:
		if r.value == "" || s.validate.Var(r.value, "url") != nil {
			r.flag("Invalid URL format", RiskMedium)
			return
		}
		u, err := url.Parse(r.value)
		if err != nil {
			r.flag("Invalid URL format", RiskMedium)
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			r.flag("Only HTTP and HTTPS URLs are allowed", RiskHigh)
		}
	}
}
