// Package extract 从 PDF 字节中提取文本层。
//
// 只处理 PDF 内嵌的文本，扫描件（纯图片）会得到空文本。
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/iabetor/mathspeech/internal/logger"
)

// ErrNotPDF 表示数据不是以 %PDF- 开头。
var ErrNotPDF = errors.New("[extract] 不是 PDF 文件")

// Error 表示 PDF 无法解析，Page 为 0 时表示文档级错误。
type Error struct {
	Page int
	Err  error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("[extract] 解析第 %d 页失败: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("[extract] 解析 PDF 失败: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Document 是提取结果。
type Document struct {
	Text      string
	PageCount int
}

// IsPDF 检查文件头魔数。
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// Text 按页码从 1 到最后一页依次提取文本，页与页之间用单个空格连接。
// 每页先去掉首尾空白，没有文本的页不参与连接，因此结果中不会出现连续空格。
func Text(data []byte) (doc *Document, err error) {
	r, err := open(data)
	if err != nil {
		return nil, err
	}

	pageCount := r.NumPage()
	parts := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		text, err := pageText(r, i)
		if err != nil {
			return nil, err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	text := norm.NFC.String(strings.Join(parts, " "))
	logger.Debugf("[extract] 提取完成: %d 页, %d 个字符", pageCount, len([]rune(text)))
	return &Document{Text: text, PageCount: pageCount}, nil
}

// open 打开 PDF，解析器内部的 panic 会被转换为 *Error。
func open(data []byte) (r *pdf.Reader, err error) {
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, &Error{Err: fmt.Errorf("%v", rec)}
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &Error{Err: err}
	}
	return r, nil
}

func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", &Error{Page: num, Err: fmt.Errorf("%v", rec)}
		}
	}()

	p := r.Page(num)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", &Error{Page: num, Err: err}
	}
	return strings.TrimSpace(text), nil
}
