package insight

import (
	"encoding/json"
	"fmt"

	"github.com/samuelfneumann/agentx/experiment"
	"github.com/samuelfneumann/agentx/experiment/trackers"
)

// RecentEpisodes is the number of most recent metrics points included in
// a prompt
const RecentEpisodes = 20

// SystemInstruction is the system instruction of every analysis
const SystemInstruction = "You are a senior Reinforcement Learning " +
	"researcher. Your goal is to provide actionable insights for an " +
	"autonomous agent's training loop."

const promptTemplate = `As an AI Specialist for AgentX (an RL-powered autonomous agent), analyze the current training session:

Algorithm: %s
Learning Rate: %g
Exploration Rate: %g

Recent Metrics History:
%s

Provide a concise analysis (max 150 words) including:
1. Performance trend (Is it learning or stagnating?).
2. One specific hyperparameter adjustment suggestion.
3. Potential risk (e.g., overfitting, vanishing rewards).

Format the output in professional technical terms.`

// Prompt returns the analysis prompt for the last RecentEpisodes points
// of metrics under configuration c
func Prompt(metrics []trackers.MetricsPoint, c experiment.Config) (string,
	error) {
	if len(metrics) > RecentEpisodes {
		metrics = metrics[len(metrics)-RecentEpisodes:]
	}

	history, err := json.Marshal(metrics)
	if err != nil {
		return "", fmt.Errorf("prompt: could not encode metrics: %w", err)
	}

	return fmt.Sprintf(promptTemplate, c.Algorithm, c.LearningRate,
		c.ExplorationRate, history), nil
}
