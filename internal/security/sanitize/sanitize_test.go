package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestScriptBlockIsRemoved(t *testing.T) {
	res := Sanitize("<script>alert(1)</script>Hello", Options{})

	assert.Equal(t, "Hello", res.SanitizedValue)
	assert.False(t, res.IsValid)
	assert.Equal(t, RiskHigh, res.RiskLevel)
	assert.Contains(t, res.Violations, "Potentially malicious script content detected")
}

func TestMultilineScriptAndHandlers(t *testing.T) {
	in := "<SCRIPT type=\"text/javascript\">\nsteal()\n</SCRIPT><a href=\"javascript:go()\" onclick=\"x()\">link</a>"
	res := Sanitize(in, Options{AllowSQLPatterns: true})

	assert.Equal(t, "link", res.SanitizedValue)
	assert.Equal(t, RiskHigh, res.RiskLevel)
}

func TestHTMLTagsAreStripped(t *testing.T) {
	res := Sanitize("<b>bold</b> & <i>plain</i>", Options{AllowSQLPatterns: true})

	assert.Equal(t, "bold & plain", res.SanitizedValue)
	assert.Equal(t, RiskMedium, res.RiskLevel)
	assert.Equal(t, []string{"HTML tags are not allowed"}, res.Violations)
}

func TestHTMLAllowed(t *testing.T) {
	res := Sanitize("<b>bold</b>", Options{AllowHTML: true})
	assert.Equal(t, "<b>bold</b>", res.SanitizedValue)
	assert.True(t, res.IsValid)
}

func TestRiskNeverDowngrades(t *testing.T) {
	res := Sanitize("<script>x</script><b>hi</b>", Options{})
	assert.Equal(t, "hi", res.SanitizedValue)
	assert.Equal(t, RiskHigh, res.RiskLevel)
	assert.Len(t, res.Violations, 2)
}

func TestSQLFragmentsAreStripped(t *testing.T) {
	res := Sanitize("Robert'); DROP TABLE students;--", Options{})

	assert.NotContains(t, res.SanitizedValue, "DROP")
	assert.NotContains(t, res.SanitizedValue, "'")
	assert.NotContains(t, res.SanitizedValue, ";")
	assert.NotContains(t, res.SanitizedValue, "--")
	assert.Equal(t, RiskHigh, res.RiskLevel)

	tautology := Sanitize("1 OR 1=1", Options{})
	assert.Equal(t, "1", tautology.SanitizedValue)

	comment := Sanitize("a /* b */ c", Options{})
	assert.NotContains(t, comment.SanitizedValue, "/*")
}

func TestOutputNeverExceedsMaxLength(t *testing.T) {
	inputs := []string{
		strings.Repeat("a", 500),
		strings.Repeat("é", 300),
		"<p>" + strings.Repeat("x", 200) + "</p>",
		"short",
	}
	for _, in := range inputs {
		res := Sanitize(in, Options{MaxLength: 100})
		assert.LessOrEqual(t, utf8.RuneCountInString(res.SanitizedValue), 100)
	}

	res := Sanitize(strings.Repeat("a", 50), Options{MaxLength: 10})
	assert.Equal(t, strings.Repeat("a", 10), res.SanitizedValue)
	assert.Equal(t, RiskMedium, res.RiskLevel)
	assert.Equal(t, []string{"Input exceeds maximum length of 10 characters"}, res.Violations)
}

func TestFieldRules(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		field     FieldType
		want      string
		risk      RiskLevel
		violation string
	}{
		{"valid email", "jane.doe@uni.edu", FieldEmail, "jane.doe@uni.edu", RiskLow, ""},
		{"email with space", "jane doe@uni.edu", FieldEmail, "janedoe@uni.edu", RiskMedium, "Email contains invalid characters"},
		{"valid username", "study_buddy-1", FieldUsername, "study_buddy-1", RiskLow, ""},
		{"username symbols", "john doe!", FieldUsername, "johndoe", RiskMedium, "Username contains invalid characters"},
		{"long password", strings.Repeat("p", 130), FieldPassword, strings.Repeat("p", 128), RiskMedium, "Password is too long"},
		{"https url", "https://campus.edu/events", FieldURL, "https://campus.edu/events", RiskLow, ""},
		{"ftp url", "ftp://files.campus.edu", FieldURL, "ftp://files.campus.edu", RiskHigh, "Only HTTP and HTTPS URLs are allowed"},
		{"not a url", "not a url", FieldURL, "not a url", RiskMedium, "Invalid URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Sanitize(tt.input, Options{AllowSQLPatterns: true, FieldType: tt.field})
			assert.Equal(t, tt.want, res.SanitizedValue)
			assert.Equal(t, tt.risk, res.RiskLevel)
			if tt.violation == "" {
				assert.True(t, res.IsValid)
			} else {
				assert.Contains(t, res.Violations, tt.violation)
			}
		})
	}
}

func TestNullAndControlCharacters(t *testing.T) {
	res := Sanitize("abc\x00def", Options{})
	assert.Equal(t, "abcdef", res.SanitizedValue)
	assert.Equal(t, RiskHigh, res.RiskLevel)

	res = Sanitize("line1\nline2\x07", Options{})
	assert.Equal(t, "line1line2", res.SanitizedValue)
	assert.Equal(t, RiskMedium, res.RiskLevel)

	res = Sanitize("line1\nline2\x07", Options{PreserveNewlines: true})
	assert.Equal(t, "line1\nline2", res.SanitizedValue)
}

func TestTextKeepsPunctuation(t *testing.T) {
	assert.Equal(t, "I can't wait; see you at 5", Text("  I can't wait; see you at 5  ", 0))
	assert.Equal(t, "Hello", Text("<script>alert(1)</script>Hello", 0))
}

func TestCleanInputIsValid(t *testing.T) {
	res := Sanitize("  Study group at the library  ", Options{MaxLength: 100})
	assert.True(t, res.IsValid)
	assert.Equal(t, RiskLow, res.RiskLevel)
	assert.Equal(t, "Study group at the library", res.SanitizedValue)
	assert.Empty(t, res.Violations)
}
