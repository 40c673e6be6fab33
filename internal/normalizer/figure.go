package normalizer

import "regexp"

// figurePattern 匹配 "Figure N: 描述" 或 "Figure N. 描述"，描述截止到下一个句末标点之前。
var figurePattern = regexp.MustCompile(`(?i)Figure (\d+)[:.]\s*([^.!?]+)`)

// EnhanceFigures 为图表引用补充朗读上下文，分隔符统一输出为冒号。
func EnhanceFigures(text string) string {
	return figurePattern.ReplaceAllString(text, "Let me describe Figure ${1}: ${2}")
}
