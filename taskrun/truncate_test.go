package taskrun

import (
	"strings"
	"testing"
)

func TestTruncateMiddle(t *testing.T) {
	short := "hello"
	if got := truncateMiddle(short, 100); got != short {
		t.Errorf("short input changed: %q", got)
	}
	if got := truncateMiddle(short, 0); got != short {
		t.Errorf("zero limit changed input: %q", got)
	}

	long := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	got := truncateMiddle(long, 100)
	if !strings.HasPrefix(got, "aaaa") {
		t.Error("head not preserved")
	}
	if !strings.HasSuffix(got, "zzzz") {
		t.Error("tail not preserved")
	}
	if !strings.Contains(got, "900 characters elided") {
		t.Errorf("missing elision marker: %q", got)
	}
}
