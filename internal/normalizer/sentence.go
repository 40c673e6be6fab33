package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxSentence 超过该长度（字符数）的句子会在逗号处拆分一次。
	DefaultMaxSentence = 150

	equationPrefix = "Let's look at "
	clauseJoiner   = " and "
)

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// SplitSentences 在“句末标点 + 空白”处切分文本。
// 标点保留在前一句末尾，空白作为分隔被吞掉；空串返回只含一个空串的切片。
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	var prev rune

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && isTerminator(prev) {
			sentences = append(sentences, text[start:i])
			// 连续空白整体作为一个分隔
			j := i
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(r2) {
					break
				}
				j += s2
			}
			start, i, prev = j, j, 0
			continue
		}
		prev = r
		i += size
	}
	return append(sentences, text[start:])
}

// RefineSentences 使用默认阈值对文本做句子级润色。
func RefineSentences(text string) string {
	return std.RefineSentences(text)
}

// RefineSentences 逐句润色后用单个空格重新拼接，保持原有顺序。
func (n *Normalizer) RefineSentences(text string) string {
	sentences := SplitSentences(text)
	refined := make([]string, len(sentences))
	for i, s := range sentences {
		refined[i] = n.refineSentence(s)
	}
	return strings.Join(refined, " ")
}

// refineSentence 先加公式前缀再判断长度，每句最多拆分一次，不递归。
func (n *Normalizer) refineSentence(sentence string) string {
	s := strings.TrimSpace(sentence)

	lower := strings.ToLower(s)
	if strings.Contains(lower, "equation") || strings.Contains(lower, "formula") {
		s = equationPrefix + s
	}

	runes := []rune(s)
	if len(runes) <= n.maxSentence {
		return s
	}

	// 在下标 <= maxSentence 的范围内找最后一个逗号
	cut := -1
	for i := n.maxSentence; i >= 0; i-- {
		if runes[i] == ',' {
			cut = i
			break
		}
	}
	if cut < 0 {
		return s
	}

	head := string(runes[:cut+1])
	tail := strings.TrimLeftFunc(string(runes[cut+1:]), unicode.IsSpace)
	if tail == "" {
		return s
	}
	return head + clauseJoiner + tail
}
