package redact

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_BuiltinRules(t *testing.T) {
	out := Redact("Contact me at a@b.com or 555-123-4567 on 2024-01-02")

	assert.Equal(t, "Contact me at [EMAIL] or [PHONE] on [DATE]", out)
	assert.NotContains(t, out, "a@b.com")
	assert.NotContains(t, out, "555-123-4567")
	assert.NotContains(t, out, "2024-01-02")
	assert.Equal(t, 1, strings.Count(out, "[EMAIL]"))
	assert.Equal(t, 1, strings.Count(out, "[PHONE]"))
	assert.Equal(t, 1, strings.Count(out, "[DATE]"))
}

func TestRedact_Patterns(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"us date", "Admitted 03/14/2023 for review", "Admitted [DATE] for review"},
		{"mrn", "Record MRN: 123456 updated", "Record [MRN] updated"},
		{"mrn lower case", "see mrn 42", "see [MRN]"},
		{"address", "Lives at 221 Baker Street today", "Lives at [ADDRESS] today"},
		{"phone with dots", "call 555.123.4567", "call [PHONE]"},
		{"plain text untouched", "No identifiers here.", "No identifiers here."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.input))
		})
	}
}

func TestRedact_ExtraRulesRunAfterBuiltins(t *testing.T) {
	// 内置规则先把邮箱替换为[EMAIL]，额外规则再作用于替换结果
	extra := []Rule{
		{Pattern: regexp.MustCompile(`\[EMAIL\]`), Replacement: "[CONTACT]"},
		{Pattern: regexp.MustCompile(`Dr\. [A-Z][a-z]+`), Replacement: "[NAME]"},
	}

	out := Redact("Ask Dr. Smith at smith@clinic.org", extra...)
	assert.Equal(t, "Ask [NAME] at [CONTACT]", out)
}

func TestRedactor(t *testing.T) {
	rules, err := ParseRules([]RuleConfig{
		{Pattern: `(?i)patient\s+\w+`, Replacement: "[PATIENT]"},
	})
	require.NoError(t, err)

	r := NewRedactor(rules...)
	assert.Equal(t, "[PATIENT] emailed [EMAIL]", r.Redact("Patient Jones emailed j@x.io"))

	var nilRedactor *Redactor
	assert.Equal(t, "[EMAIL]", nilRedactor.Redact("j@x.io"))
}

func TestParseRules_InvalidPattern(t *testing.T) {
	_, err := ParseRules([]RuleConfig{{Pattern: "(unclosed", Replacement: "x"}})
	assert.Error(t, err)
}

func TestBuiltinRules_ReturnsCopy(t *testing.T) {
	rules := BuiltinRules()
	require.Len(t, rules, 5)
	rules[0].Replacement = "changed"
	assert.Equal(t, "[EMAIL]", BuiltinRules()[0].Replacement)
}
