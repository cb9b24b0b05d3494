package model_test

import (
	"bytes"
	"go/format"
	"os"
	"testing"
)

// Struct tags and trailing comments in these files are hand aligned.
func TestSourcesAreGofmtClean(t *testing.T) {
	files := []string{
		"models.go",
		"../bingo/lifecycle.go",
		"../service/pool/service.go",
	}
	for _, name := range files {
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		formatted, err := format.Source(src)
		if err != nil {
			t.Fatalf("format %s: %v", name, err)
		}
		if !bytes.Equal(src, formatted) {
			t.Fatalf("%s is not gofmt clean", name)
		}
	}
}
