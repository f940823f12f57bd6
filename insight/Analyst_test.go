package insight

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samuelfneumann/agentx/agent"
	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/trackers"
)

type fakeGenerator struct {
	text    string
	err     error
	system  string
	prompt  string
	started chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, system,
	prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.text, f.err
}

func history(n int) []trackers.MetricsPoint {
	points := make([]trackers.MetricsPoint, n)
	for i := range points {
		points[i] = trackers.NewMetricsPoint(i+1, float64(10*i))
	}
	return points
}

func TestAnalyzeReturnsGeneratedText(t *testing.T) {
	gen := &fakeGenerator{text: "  Learning steadily.\n"}
	a := NewAnalyst(gen, nil)

	text, err := a.Analyze(context.Background(), history(6),
		experiment.DefaultConfig())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if text != "Learning steadily." {
		t.Errorf("text = %q", text)
	}
	if gen.system != SystemInstruction {
		t.Errorf("system instruction = %q", gen.system)
	}
	if a.Busy() {
		t.Error("analyst busy after analysis")
	}
}

func TestAnalyzeFallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		want string
	}{
		{"error", &fakeGenerator{err: errors.New("401 unauthorized")},
			FallbackUnavailable},
		{"empty", &fakeGenerator{text: " \n"}, FallbackEmpty},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := NewAnalyst(test.gen, nil)
			text, err := a.Analyze(context.Background(), history(5),
				experiment.DefaultConfig())
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			if text != test.want {
				t.Errorf("text = %q, want %q", text, test.want)
			}
		})
	}
}

func TestAnalyzeNeedsEpisodes(t *testing.T) {
	a := NewAnalyst(&fakeGenerator{text: "x"}, nil)
	_, err := a.Analyze(context.Background(), history(MinEpisodes-1),
		experiment.DefaultConfig())
	if !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("error = %v, want %v", err, ErrNotEnoughData)
	}
}

func TestAnalyzeOneAtATime(t *testing.T) {
	gen := &fakeGenerator{
		text:    "done",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	a := NewAnalyst(gen, nil)

	result := make(chan string)
	go func() {
		text, _ := a.Analyze(context.Background(), history(5),
			experiment.DefaultConfig())
		result <- text
	}()

	<-gen.started
	if !a.Busy() {
		t.Error("analyst not busy during analysis")
	}
	if _, err := a.Analyze(context.Background(), history(5),
		experiment.DefaultConfig()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent analysis error = %v, want %v", err, ErrBusy)
	}

	close(gen.release)
	if text := <-result; text != "done" {
		t.Errorf("text = %q, want done", text)
	}
}

func TestPromptUsesRecentEpisodes(t *testing.T) {
	c := experiment.DefaultConfig()
	c.Algorithm = agent.PPO
	c.ExplorationRate = 0.25

	prompt, err := Prompt(history(30), c)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}

	for _, want := range []string{
		"Algorithm: PPO",
		"Learning Rate: 0.001",
		"Exploration Rate: 0.25",
		"max 150 words",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	start := strings.Index(prompt, "[")
	end := strings.LastIndex(prompt, "]")
	var got []trackers.MetricsPoint
	if err := json.Unmarshal([]byte(prompt[start:end+1]), &got); err != nil {
		t.Fatalf("metrics history is not JSON: %v", err)
	}
	if diff := cmp.Diff(history(30)[10:], got); diff != "" {
		t.Errorf("prompt history mismatch (-want +got):\n%s", diff)
	}
}
