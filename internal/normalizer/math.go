package normalizer

import (
	"regexp"
)

// rule 是一条数学标记改写规则：匹配模式 + 替换模板（可引用 ${1}、${2} 捕获组）。
type rule struct {
	pattern *regexp.Regexp
	replace string
}

// mathRules 按固定顺序执行，后一条规则作用于前一条的输出。
// 花括号内的捕获组不能包含 '}'，因此不支持嵌套花括号。
var mathRules = []rule{
	{regexp.MustCompile(`\\sqrt\{([^}]+)\}`), "the square root of ${1}"},
	{regexp.MustCompile(`([a-z\d]+)\^(\d+)`), "${1} to the power of ${2}"},
	{regexp.MustCompile(`\\int_([^}]+)\^([^}]+)`), "the integral from ${1} to ${2}"},
	{regexp.MustCompile(`\\sum_([^}]+)\^([^}]+)`), "the sum from ${1} to ${2}"},
	{regexp.MustCompile(`\\frac\{([^}]+)\}\{([^}]+)\}`), "the fraction of ${1} over ${2}"},
	symbol(`\pi`, "pi"),
	symbol(`\alpha`, "alpha"),
	symbol(`\beta`, "beta"),
	symbol(`\gamma`, "gamma"),
	symbol(`\infty`, "infinity"),
	symbol(`\equiv`, "is equivalent to"),
	symbol(`\approx`, "is approximately equal to"),
	symbol(`\neq`, "is not equal to"),
	symbol(`\geq`, "is greater than or equal to"),
	symbol(`\leq`, "is less than or equal to"),
}

func symbol(command, phrase string) rule {
	return rule{regexp.MustCompile(regexp.QuoteMeta(command)), phrase}
}

// ApplyMath 将 LaTeX 风格的数学标记改写为可朗读的英文短语。
// 每条规则全局替换，不含数学标记的文本原样返回。
func ApplyMath(text string) string {
	for _, r := range mathRules {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}
