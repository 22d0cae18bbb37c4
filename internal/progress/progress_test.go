package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestBarUpdateAndFinish(t *testing.T) {
	var buf bytes.Buffer
	bar := New(&buf)

	bar.Update(2, 4)
	out := buf.String()
	if !strings.HasPrefix(out, "\r") {
		t.Fatalf("expected carriage return prefix, got %q", out)
	}
	if !strings.Contains(out, "2/4") {
		t.Fatalf("expected counter in output, got %q", out)
	}

	bar.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatal("Finish should end the line")
	}
	before := buf.Len()
	bar.Finish()
	if buf.Len() != before {
		t.Fatal("second Finish should not write")
	}
}

func TestBarIgnoresEmptyTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := New(&buf)
	bar.Update(0, 0)
	bar.Finish()
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNilBarIsNoop(t *testing.T) {
	var bar *Bar
	bar.Update(1, 2)
	bar.Finish()
}
