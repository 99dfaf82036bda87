package document

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer 文本规范化接口
type Normalizer interface {
	// Normalize 返回规范化后的文本，相同输入总是得到相同输出
	Normalize(text string) string
}

// NormalizerFunc 函数适配器
type NormalizerFunc func(string) string

// Normalize 实现Normalizer接口
func (f NormalizerFunc) Normalize(text string) string {
	return f(text)
}

// TextNormalizer 通用文本规范化
// NFKC兼容分解，移除控制字符，连续空白压缩为单个空格
var TextNormalizer Normalizer = NormalizerFunc(NormalizeText)

// MarkdownNormalizer 先去除Markdown标记，再做通用规范化
var MarkdownNormalizer Normalizer = NormalizerFunc(func(text string) string {
	return NormalizeText(StripMarkdown(text))
})

// NormalizeText 规范化文本
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsControl(r), r == unicode.ReplacementChar, r == '\u200b', r == '\ufeff':
			// 丢弃
		default:
			if pendingSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			pendingSpace = false
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
