// Package preview 根据播放进度计算 PDF 预览中需要高亮的文本片段。
package preview

import (
	"math"

	"github.com/iabetor/mathspeech/internal/extract"
)

// Progress 返回播放进度，范围 [0, 1]。任一参数非正数或不是有限值时为 0。
func Progress(current, total float64) float64 {
	if !finite(current) || !finite(total) || total <= 0 || current <= 0 {
		return 0
	}
	p := current / total
	if p > 1 {
		return 1
	}
	return p
}

// Highlight 返回应高亮的片段下标：按进度取前 floor(len(items)*progress) 个。
func Highlight(items []extract.Item, current, total float64) []int {
	count := int(math.Floor(float64(len(items)) * Progress(current, total)))
	indexes := make([]int, count)
	for i := range indexes {
		indexes[i] = i
	}
	return indexes
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
