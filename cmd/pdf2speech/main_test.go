package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/iabetor/mathspeech/internal/extract/pdftest"
)

// runWith 用给定参数调用 run，并恢复全局 flag 状态。
func runWith(t *testing.T, args ...string) int {
	t.Helper()
	oldArgs, oldFlags := os.Args, flag.CommandLine
	t.Cleanup(func() {
		os.Args, flag.CommandLine = oldArgs, oldFlags
	})
	os.Args = append([]string{"pdf2speech"}, args...)
	flag.CommandLine = flag.NewFlagSet("pdf2speech", flag.ContinueOnError)
	return run()
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	noConfig := filepath.Join(dir, "missing.yaml")

	pdfPath := filepath.Join(dir, "paper.pdf")
	if err := os.WriteFile(pdfPath, pdftest.Build("The value is x^2"), 0644); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing input", []string{"-config", noConfig}, 2},
		{"unreadable input", []string{"-config", noConfig, "-in", filepath.Join(dir, "nope.pdf")}, 1},
		{"not a pdf", []string{"-config", noConfig, "-in", txtPath, "-text"}, 1},
		{"text only", []string{"-config", noConfig, "-in", pdfPath, "-text"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runWith(t, tt.args...); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
