package log

import (
	"bytes"
	"strings"
	"testing"
)

func Test_levels(t *testing.T) {
	var b bytes.Buffer
	l := New(&b)
	l.SetLevel(Warn)
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.Errorf("shown %d\n", 3)
	out := b.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "shown 3") {
		t.Errorf("missing messages: %q", out)
	}
	if n := strings.Count(out, "\n"); n != 2 {
		t.Errorf("want 2 lines, got %d: %q", n, out)
	}
}

func Test_ParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": Debug,
		"INFO":  Info,
		"Warn":  Warn,
		"ERROR": Error,
		"":      Info,
	}
	for s, want := range tests {
		if got := ParseLevel(s); got != want {
			t.Errorf("ParseLevel(%q) = %d, want %d", s, got, want)
		}
	}
}
