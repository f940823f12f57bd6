// Command agentx trains a reinforcement learning agent on a gridworld,
// either interactively in a terminal dashboard or headless, stopping
// early once its rewards plateau or degrade.
package main

func main() {
	Execute()
}
