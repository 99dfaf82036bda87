package document

import (
	"fmt"
	"strings"
	"unicode"
)

// Splitter 文本分段器接口
// 负责将清洗后的长文本分割成适合向量化的小段
type Splitter interface {
	// Split 将文本分割成若干段，结果顺序与原文一致
	Split(text string) ([]string, error)
}

// FixedWindowSplitter 固定窗口分段器
// 按字符（rune）切分出长度为ChunkSize、相邻窗口重叠ChunkOverlap的窗口
type FixedWindowSplitter struct {
	ChunkSize    int // 窗口大小（字符数）
	ChunkOverlap int // 相邻窗口的重叠字符数
}

// NewFixedWindowSplitter 创建固定窗口分段器
func NewFixedWindowSplitter(size, overlap int) (*FixedWindowSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &FixedWindowSplitter{ChunkSize: size, ChunkOverlap: overlap}, nil
}

// Split 按固定窗口分割文本
// 最后一个窗口总是结束于文本末尾
func (s *FixedWindowSplitter) Split(text string) ([]string, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	step := s.ChunkSize - s.ChunkOverlap
	if step <= 0 {
		return nil, fmt.Errorf("invalid window: size %d, overlap %d", s.ChunkSize, s.ChunkOverlap)
	}

	var chunks []string
	for start := 0; ; start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// SemanticSplitter 语义边界分段器
// 优先在段落和句子边界断开，产出长度位于[MinLength, MaxLength]区间的分段。
// 除最后一段外，任何分段都不短于MinLength；所有分段都不超过MaxLength。
type SemanticSplitter struct {
	MinLength int // 非末尾分段的最小长度（字符数）
	MaxLength int // 分段的最大长度（字符数）
}

// NewSemanticSplitter 创建语义边界分段器
func NewSemanticSplitter(minLength, maxLength int) (*SemanticSplitter, error) {
	if minLength <= 0 {
		return nil, fmt.Errorf("min length must be positive, got %d", minLength)
	}
	if maxLength <= minLength {
		return nil, fmt.Errorf("max length (%d) must be greater than min length (%d)", maxLength, minLength)
	}
	return &SemanticSplitter{MinLength: minLength, MaxLength: maxLength}, nil
}

// Split 将文本按句子打包成分段
func (s *SemanticSplitter) Split(text string) ([]string, error) {
	if s.MaxLength <= s.MinLength || s.MinLength <= 0 {
		return nil, fmt.Errorf("invalid bounds: min %d, max %d", s.MinLength, s.MaxLength)
	}

	var pieces [][]rune
	for _, sentence := range SplitSentences(text) {
		pieces = append(pieces, splitLongUnit([]rune(sentence), s.MaxLength)...)
	}
	if len(pieces) == 0 {
		return []string{}, nil
	}

	var chunks []string
	var current []rune

	for _, piece := range pieces {
		if len(current) == 0 {
			current = append(current, piece...)
			continue
		}

		// 加上连接用的空格后仍不超过上限，直接合并
		if len(current)+1+len(piece) <= s.MaxLength {
			current = append(current, ' ')
			current = append(current, piece...)
			continue
		}

		if len(current) >= s.MinLength {
			chunks = append(chunks, string(current))
			current = append([]rune{}, piece...)
			continue
		}

		// 当前分段太短，用下一句的前半部分填充到下限以上
		room := s.MaxLength - len(current) - 1
		head, tail := cutPiece(piece, room, s.MinLength-len(current)-1)
		current = append(current, ' ')
		current = append(current, head...)
		chunks = append(chunks, string(current))
		current = append([]rune{}, tail...)
	}

	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}

	return chunks, nil
}

// cutPiece 将piece切成长度不超过room的head和剩余的tail
// 优先在空白处切分，但head必须至少有need个字符
func cutPiece(piece []rune, room, need int) ([]rune, []rune) {
	if room >= len(piece) {
		return piece, nil
	}

	for i := room; i > 0 && i >= need; i-- {
		if !unicode.IsSpace(piece[i]) {
			continue
		}
		if head := trimRightRunes(piece[:i]); len(head) >= need {
			return head, trimLeftRunes(piece[i+1:])
		}
		break
	}

	return piece[:room], trimLeftRunes(piece[room:])
}

// splitLongUnit 将超过max的句子在空白处拆开，没有空白时硬切
func splitLongUnit(unit []rune, max int) [][]rune {
	var result [][]rune
	for len(unit) > max {
		cut := -1
		for i := max; i > 0; i-- {
			if unicode.IsSpace(unit[i]) {
				cut = i
				break
			}
		}

		if cut <= 0 {
			result = append(result, unit[:max])
			unit = trimLeftRunes(unit[max:])
			continue
		}

		result = append(result, trimRightRunes(unit[:cut]))
		unit = trimLeftRunes(unit[cut+1:])
	}
	if len(unit) > 0 {
		result = append(result, unit)
	}
	return result
}

// 句子结束符
var sentenceTerminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '；': true,
}

// 不需要后随空白即可断句的全角结束符
var fullWidthTerminators = map[rune]bool{
	'。': true, '！': true, '？': true, '；': true,
}

// SplitSentences 将文本拆分为句子
// 在结束符后的空白处断开，空行视为段落边界；
// 形如"e.g."的缩写和"Dr."这类称谓后不断句
func SplitSentences(text string) []string {
	runes := []rune(strings.ReplaceAll(text, "\r\n", "\n"))

	var sentences []string
	start := 0
	emit := func(end int) {
		sentence := strings.TrimSpace(string(runes[start:end]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = end
	}

	for i, r := range runes {
		if fullWidthTerminators[r] {
			emit(i + 1)
			continue
		}
		if !unicode.IsSpace(r) || i == 0 {
			continue
		}

		// 段落边界
		if r == '\n' && runes[i-1] == '\n' {
			emit(i)
			continue
		}

		if sentenceTerminators[runes[i-1]] && !isAbbreviation(runes, i) {
			emit(i)
		}
	}
	emit(len(runes))

	return sentences
}

// 句号后不断句的称谓和常用缩写，按小写比较
var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"st": true, "jr": true, "sr": true, "vs": true, "etc": true,
	"fig": true, "al": true, "approx": true,
}

// isAbbreviation 判断位置i（空白）之前是否为缩写
func isAbbreviation(runes []rune, i int) bool {
	if runes[i-1] != '.' {
		return false
	}
	// 形如 "e.g." "i.e."
	if i >= 4 && isWordRune(runes[i-4]) && runes[i-3] == '.' && isWordRune(runes[i-2]) &&
		(i == 4 || !isWordRune(runes[i-5])) {
		return true
	}

	// 形如 "Dr." "Mr."
	start := i - 1
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	return abbreviations[strings.ToLower(string(runes[start:i-1]))]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func trimLeftRunes(r []rune) []rune {
	for len(r) > 0 && unicode.IsSpace(r[0]) {
		r = r[1:]
	}
	return r
}

func trimRightRunes(r []rune) []rune {
	for len(r) > 0 && unicode.IsSpace(r[len(r)-1]) {
		r = r[:len(r)-1]
	}
	return r
}
