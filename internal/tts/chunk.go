package tts

import (
	"strings"
	"unicode/utf8"
)

// extractSentence 尝试从文本中提取第一个完整句子。
func extractSentence(text string) (string, string, bool) {
	for i, r := range text {
		switch r {
		case '.', '!', '?', ';', '\n', '。', '！', '？', '；':
			splitAt := i + utf8.RuneLen(r)
			return text[:splitAt], text[splitAt:], true
		}
	}
	return "", text, false
}

// Chunk 将文本按句分割后合并为大段，每段尽量不超过 maxChars 个字符。
// 单句本身超长时按字符硬切。
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 100
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}
	add := func(s string) {
		for _, piece := range hardSplit(s, maxChars) {
			n := utf8.RuneCountInString(piece)
			if currentLen > 0 && currentLen+1+n > maxChars {
				flush()
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(piece)
			currentLen += n
		}
	}

	remaining := text
	for {
		sentence, rest, found := extractSentence(remaining)
		if !found {
			if r := strings.TrimSpace(remaining); r != "" {
				add(r)
			}
			break
		}
		remaining = rest
		if s := strings.TrimSpace(sentence); s != "" {
			add(s)
		}
	}
	flush()
	return chunks
}

func hardSplit(s string, maxChars int) []string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return []string{s}
	}
	var parts []string
	for len(runes) > maxChars {
		parts = append(parts, string(runes[:maxChars]))
		runes = runes[maxChars:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
