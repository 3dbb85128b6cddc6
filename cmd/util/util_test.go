package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line longer than %d characters: %q", Wrap, line)
		}
	}

	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("Expected %q, got %q", "short text", got)
	}
}

func TestLines(t *testing.T) {
	var got []string
	collect := func(line string) error {
		got = append(got, line)
		return nil
	}

	if err := Lines(strings.NewReader("a\nb\n\nc"), nil, collect); err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if strings.Join(got, ",") != "a,b,,c" {
		t.Errorf("Unexpected lines %q", got)
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	if err := os.WriteFile(first, []byte("x\ny\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("z\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got = nil
	if err := Lines(strings.NewReader("ignored"), []string{first, second}, collect); err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if strings.Join(got, ",") != "x,y,z" {
		t.Errorf("Unexpected lines %q", got)
	}

	stop := errors.New("stop")
	err := Lines(strings.NewReader("a\nb"), nil, func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Expected the callback error, got %v", err)
	}

	if err := Lines(nil, []string{filepath.Join(dir, "missing.txt")}, collect); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}
