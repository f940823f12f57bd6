package progressbar

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedBar(out *bytes.Buffer, width, max int) *ProgressBar {
	p := New(out, width, max)
	start := time.Unix(0, 0)
	p.startTime = start
	p.now = func() time.Time { return start.Add(3500 * time.Millisecond) }
	return p
}

func TestString(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		set    int
		status string
		want   string
	}{
		{"empty", 4, 0, "", "|    | [0/4 0.00% | elapsed: 3s]"},
		{"half", 4, 2, "", "|██  | [2/4 50.00% | elapsed: 3s]"},
		{"clipped", 4, 9, "done", "|████| [4/4 100.00% | elapsed: 3s] done"},
		{"unbounded", 0, 7, "", "|    | [7 | elapsed: 3s]"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := fixedBar(&bytes.Buffer{}, 4, test.max)
			p.Set(test.set)
			p.SetStatus(test.status)
			if got := p.String(); got != test.want {
				t.Errorf("String() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestDisplayAndClose(t *testing.T) {
	var out bytes.Buffer
	p := fixedBar(&out, 2, 2)
	p.Increment()
	p.Display()
	p.Increment()
	p.Increment()
	p.Close()

	lines := strings.Split(out.String(), "\r\033[K")
	if len(lines) != 3 {
		t.Fatalf("writes = %d, want 2 redraws", len(lines)-1)
	}
	if !strings.HasPrefix(lines[2], "|██| [2/2") || !strings.HasSuffix(
		lines[2], "\n") {
		t.Errorf("final line = %q", lines[2])
	}
}

func TestNewPanicsOnZeroWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	New(&bytes.Buffer{}, 0, 10)
}
