// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar is a progress bar which must be manually managed: the
// Display method must be called whenever an updated bar should be
// written. A ProgressBar is not safe for concurrent use.
type ProgressBar struct {
	out       io.Writer
	width     int
	max       int
	current   int
	status    string
	startTime time.Time
	now       func() time.Time
}

// New returns a new ProgressBar, width characters wide, which reaches
// 100% after max steps and writes to out. If max is less than 1, the bar
// only counts steps.
func New(out io.Writer, width, max int) *ProgressBar {
	if width < 1 {
		panic(fmt.Sprintf("new: width must be positive, got %d", width))
	}
	return &ProgressBar{
		out:       out,
		width:     width,
		max:       max,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Set sets the progress to n steps, clipped to the maximum
func (p *ProgressBar) Set(n int) {
	if p.max > 0 && n > p.max {
		n = p.max
	}
	p.current = max(n, 0)
}

// Increment adds a single step of progress
func (p *ProgressBar) Increment() {
	p.Set(p.current + 1)
}

// SetStatus sets the text displayed after the bar
func (p *ProgressBar) SetStatus(status string) {
	p.status = status
}

// String returns the bar as a single line
func (p *ProgressBar) String() string {
	var bar strings.Builder
	bar.WriteByte('|')

	filled, pct := 0, 0.0
	if p.max > 0 {
		pct = float64(p.current) / float64(p.max)
		filled = int(pct * float64(p.width))
	}
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))
	bar.WriteByte('|')

	elapsed := p.now().Sub(p.startTime).Truncate(time.Second)
	if p.max > 0 {
		fmt.Fprintf(&bar, " [%d/%d %.2f%% | elapsed: %v]", p.current, p.max,
			pct*100, elapsed)
	} else {
		fmt.Fprintf(&bar, " [%d | elapsed: %v]", p.current, elapsed)
	}
	if p.status != "" {
		bar.WriteString(" ")
		bar.WriteString(p.status)
	}
	return bar.String()
}

// Display overwrites the current terminal line with the bar
func (p *ProgressBar) Display() {
	fmt.Fprintf(p.out, "\r\033[K%v", p.String())
}

// Close displays the bar a final time and moves to the next line
func (p *ProgressBar) Close() {
	p.Display()
	fmt.Fprintln(p.out)
}
