// Package redact 基于正则规则的敏感信息遮蔽
//
// 这是尽力而为的模式匹配，不保证移除所有可识别个人身份的信息，
// 调用方不应把它当作临床级别的去标识化工具。
package redact

import (
	"fmt"
	"regexp"
)

// Rule 一条遮蔽规则：匹配的文本整体替换为固定标记
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// RuleConfig 配置文件中的规则定义
type RuleConfig struct {
	Pattern     string `mapstructure:"pattern" validate:"required"`
	Replacement string `mapstructure:"replacement" validate:"required"`
}

// 内置规则，按顺序应用
var builtinRules = []Rule{
	// 邮箱
	{regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`), "[EMAIL]"},
	// 电话号码（北美格式）
	{regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`), "[PHONE]"},
	// 日期 YYYY-MM-DD 与 MM/DD/YYYY
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{2}/\d{2}/\d{4}\b`), "[DATE]"},
	// 病历号
	{regexp.MustCompile(`(?i)\bMRN[:\s]*\d+\b`), "[MRN]"},
	// 街道地址（门牌号 + 街道名）
	{
		regexp.MustCompile(`(?i)\b\d{1,5} [A-Za-z0-9 .,'-]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`),
		"[ADDRESS]",
	},
}

// BuiltinRules 返回内置规则的副本
func BuiltinRules() []Rule {
	rules := make([]Rule, len(builtinRules))
	copy(rules, builtinRules)
	return rules
}

// Redact 依次应用内置规则和extra规则
// extra追加在内置规则之后，每条规则对全文做全局替换
func Redact(text string, extra ...Rule) string {
	for _, rule := range builtinRules {
		text = rule.Pattern.ReplaceAllLiteralString(text, rule.Replacement)
	}
	for _, rule := range extra {
		if rule.Pattern == nil {
			continue
		}
		text = rule.Pattern.ReplaceAllLiteralString(text, rule.Replacement)
	}
	return text
}

// Redactor 绑定了一组额外规则的遮蔽器
type Redactor struct {
	extra []Rule
}

// NewRedactor 创建遮蔽器
func NewRedactor(extra ...Rule) *Redactor {
	return &Redactor{extra: extra}
}

// Redact 对文本应用内置规则和遮蔽器的额外规则
func (r *Redactor) Redact(text string) string {
	if r == nil {
		return Redact(text)
	}
	return Redact(text, r.extra...)
}

// ParseRules 编译配置中的规则
func ParseRules(configs []RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for i, cfg := range configs {
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction rule %d (%q): %w", i, cfg.Pattern, err)
		}
		rules = append(rules, Rule{Pattern: re, Replacement: cfg.Replacement})
	}
	return rules, nil
}
