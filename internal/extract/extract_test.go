package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/iabetor/mathspeech/internal/extract/pdftest"
)

func TestText_NotPDF(t *testing.T) {
	_, err := Text([]byte("hello, I am a text file"))
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestText_Empty(t *testing.T) {
	_, err := Text(nil)
	if !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF for empty input, got %v", err)
	}
}

func TestText_Malformed(t *testing.T) {
	_, err := Text([]byte("%PDF-1.4\nthis is not really a pdf\n"))
	if err == nil {
		t.Fatal("expected error for malformed PDF")
	}
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if errors.Is(err, ErrNotPDF) {
		t.Error("malformed PDF must not be reported as ErrNotPDF")
	}
}

func TestText_PagesJoinedInOrder(t *testing.T) {
	doc, err := Text(pdftest.Build("Hello", "World"))
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if doc.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", doc.PageCount)
	}
	hello := strings.Index(doc.Text, "Hello")
	world := strings.Index(doc.Text, "World")
	if hello < 0 || world < 0 {
		t.Fatalf("text missing page content: %q", doc.Text)
	}
	if hello > world {
		t.Errorf("pages out of order: %q", doc.Text)
	}
	if doc.Text != "Hello World" {
		t.Errorf("Text = %q, want pages joined by a single space", doc.Text)
	}
}

func TestText_EmptyPageSkipped(t *testing.T) {
	doc, err := Text(pdftest.Build("Hello", "", "World"))
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if doc.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", doc.PageCount)
	}
	if doc.Text != "Hello World" {
		t.Errorf("Text = %q, want %q", doc.Text, "Hello World")
	}
}

func TestPreviewItems(t *testing.T) {
	items, err := PreviewItems(pdftest.Build("Hello"), 1)
	if err != nil {
		t.Fatalf("PreviewItems failed: %v", err)
	}
	var joined strings.Builder
	for _, it := range items {
		joined.WriteString(it.Text)
	}
	if !strings.Contains(joined.String(), "Hello") {
		t.Errorf("preview items missing text: %+v", items)
	}
}

func TestPreviewItems_PageOutOfRange(t *testing.T) {
	_, err := PreviewItems(pdftest.Build("Hello"), 3)
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if extractErr.Page != 3 {
		t.Errorf("Page = %d, want 3", extractErr.Page)
	}
}

func TestMergeRuns(t *testing.T) {
	texts := []pdf.Text{
		{S: "H", X: 10, Y: 700, W: 5, FontSize: 12},
		{S: "i", X: 15, Y: 700, W: 3, FontSize: 12},
		{S: "", X: 18, Y: 700, W: 0, FontSize: 12},
		{S: "N", X: 10, Y: 680, W: 6, FontSize: 12},
	}
	items := mergeRuns(texts)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Text != "Hi" || items[0].Width != 8 {
		t.Errorf("first run = %+v", items[0])
	}
	if items[1].Text != "N" || items[1].Y != 680 || items[1].Height != 12 {
		t.Errorf("second run = %+v", items[1])
	}
}
