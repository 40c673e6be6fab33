package extract

import (
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
)

// Item 是页面上一段带坐标的文本，坐标使用 PDF 用户空间（原点在左下角）。
type Item struct {
	Text   string  `json:"str"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PreviewItems 返回指定页的文本片段，同一行上相邻的字形合并为一段。
func PreviewItems(data []byte, page int) (items []Item, err error) {
	r, err := open(data)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > r.NumPage() {
		return nil, &Error{Page: page, Err: fmt.Errorf("页码超出范围 (共 %d 页)", r.NumPage())}
	}

	defer func() {
		if rec := recover(); rec != nil {
			items, err = nil, &Error{Page: page, Err: fmt.Errorf("%v", rec)}
		}
	}()

	p := r.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}
	return mergeRuns(p.Content().Text), nil
}

func mergeRuns(texts []pdf.Text) []Item {
	var items []Item
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if n := len(items); n > 0 {
			last := &items[n-1]
			if math.Abs(last.Y-t.Y) < 0.5 && t.X >= last.X {
				last.Text += t.S
				if end := t.X + t.W - last.X; end > last.Width {
					last.Width = end
				}
				continue
			}
		}
		items = append(items, Item{Text: t.S, X: t.X, Y: t.Y, Width: t.W, Height: t.FontSize})
	}
	return items
}
