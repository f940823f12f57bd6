package render

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/agentx/environment"
	"github.com/samuelfneumann/agentx/experiment"
)

// Layout of a snapshot image, in pixels
const (
	CellSize    = 32
	ChartWidth  = 480
	margin      = 16
	headerSpace = 24
)

// Palette of a snapshot image
const (
	background = "#0f172a"
	gridLine   = "#1e293b"
	obstacle   = "#ef4444"
	target     = "#22c55e"
	agent      = "#3b82f6"
	rewardLine = "#f59e0b"
	text       = "#e2e8f0"
)

// Image draws s: the grid with the agent on the left and the per-episode
// reward chart on the right
func Image(s experiment.Snapshot) *gg.Context {
	gridPx := float64(s.Grid.Size * CellSize)
	w := int(gridPx) + ChartWidth + 3*margin
	h := int(gridPx) + 2*margin + headerSpace

	dc := gg.NewContext(w, h)
	dc.SetHexColor(background)
	dc.Clear()

	dc.SetHexColor(text)
	dc.DrawString(fmt.Sprintf("%v  episode %d  %s  %v",
		s.Config.Algorithm, s.Agent.Episode, s.Agent.Status, s.StopReason),
		margin, margin)

	drawGrid(dc, s, margin, margin+headerSpace)
	drawChart(dc, s, 2*margin+gridPx, margin+headerSpace, ChartWidth, gridPx)
	return dc
}

// PNG encodes the snapshot image of s to w
func PNG(s experiment.Snapshot, w io.Writer) error {
	if err := Image(s).EncodePNG(w); err != nil {
		return fmt.Errorf("png: %w", err)
	}
	return nil
}

// SavePNG writes the snapshot image of s to filename
func SavePNG(s experiment.Snapshot, filename string) error {
	if err := Image(s).SavePNG(filename); err != nil {
		return fmt.Errorf("savePNG: %w", err)
	}
	return nil
}

func drawGrid(dc *gg.Context, s experiment.Snapshot, x0, y0 float64) {
	cell := func(p environment.Position, colour string, inset float64) {
		dc.DrawRectangle(x0+float64(p.X*CellSize)+inset,
			y0+float64(p.Y*CellSize)+inset, CellSize-2*inset,
			CellSize-2*inset)
		dc.SetHexColor(colour)
		dc.Fill()
	}

	dc.SetHexColor(gridLine)
	dc.SetLineWidth(1)
	size := float64(s.Grid.Size * CellSize)
	for i := 0; i <= s.Grid.Size; i++ {
		offset := float64(i * CellSize)
		dc.DrawLine(x0+offset, y0, x0+offset, y0+size)
		dc.DrawLine(x0, y0+offset, x0+size, y0+offset)
	}
	dc.Stroke()

	for _, o := range s.Grid.Obstacles {
		cell(o, obstacle, 2)
	}
	cell(s.Grid.Target, target, 2)
	cell(s.Agent.Position, agent, 6)

	// Facing indicator
	dx, dy := s.Agent.Direction.Delta()
	cx := x0 + float64(s.Agent.X*CellSize) + CellSize/2
	cy := y0 + float64(s.Agent.Y*CellSize) + CellSize/2
	dc.SetHexColor(text)
	dc.DrawCircle(cx+float64(dx*CellSize)/4, cy+float64(dy*CellSize)/4, 3)
	dc.Fill()
}

func drawChart(dc *gg.Context, s experiment.Snapshot, x0, y0, w, h float64) {
	dc.SetHexColor(gridLine)
	dc.DrawRectangle(x0, y0, w, h)
	dc.SetLineWidth(1)
	dc.Stroke()

	rewards := make([]float64, len(s.Metrics))
	for i, p := range s.Metrics {
		rewards[i] = p.Reward
	}
	if len(rewards) == 0 {
		dc.SetHexColor(text)
		dc.DrawStringAnchored("no completed episodes", x0+w/2, y0+h/2,
			0.5, 0.5)
		return
	}

	min, max := floats.Min(rewards), floats.Max(rewards)
	if max == min {
		min, max = min-1, max+1
	}
	px := func(i int) float64 {
		if len(rewards) == 1 {
			return x0 + w/2
		}
		return x0 + float64(i)/float64(len(rewards)-1)*w
	}
	py := func(r float64) float64 {
		return y0 + h - (r-min)/(max-min)*h
	}

	dc.SetHexColor(rewardLine)
	dc.SetLineWidth(2)
	for i, r := range rewards {
		dc.LineTo(px(i), py(r))
	}
	dc.Stroke()
	for i, r := range rewards {
		dc.DrawCircle(px(i), py(r), 2)
	}
	dc.Fill()

	dc.SetHexColor(text)
	dc.DrawString(fmt.Sprintf("%.1f", max), x0+4, y0+14)
	dc.DrawString(fmt.Sprintf("%.1f", min), x0+4, y0+h-4)
}
