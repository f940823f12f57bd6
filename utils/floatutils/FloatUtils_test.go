package floatutils

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, want float64
	}{
		{-0.5, 0}, {0.25, 0.25}, {1.5, 1},
	}
	for _, test := range tests {
		if got := ClipInterval(test.value, Unit); got != test.want {
			t.Errorf("ClipInterval(%v) = %v, want %v", test.value, got,
				test.want)
		}
	}
}

func TestMax(t *testing.T) {
	if got := Max(10, 47.5, 3); got != 47.5 {
		t.Errorf("Max() = %v, want 47.5", got)
	}
}

func TestNudge(t *testing.T) {
	rate := 0.1
	for i := 0; i < 3; i++ {
		rate = Nudge(rate, 0.05, 2, Unit)
	}
	if rate != 0.25 {
		t.Errorf("rate after three nudges = %v, want 0.25", rate)
	}

	if got := Nudge(0.98, 0.05, 2, Unit); got != 1 {
		t.Errorf("Nudge above the interval = %v, want 1", got)
	}
	if got := Nudge(3, -5, 0, r1.Interval{Min: 0, Max: 10}); got != 0 {
		t.Errorf("Nudge below the interval = %v, want 0", got)
	}
}
