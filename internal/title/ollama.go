package title

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"
)

// OllamaConfig selects the local model. The provider always talks to
// http://localhost:11434.
type OllamaConfig struct {
	Model string
}

// OllamaGenerator completes prompts with a local model through an agent
type OllamaGenerator struct {
	agent *agent.Agent
}

// NewOllamaGenerator sets up the Ollama provider and an agent around it
func NewOllamaGenerator(ctx context.Context, cfg OllamaConfig, logger *slog.Logger) (*OllamaGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	l := logr.FromSlogHandler(logger.Handler())

	// Set up Ollama provider
	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger: &l,
	})
	if err := provider.UseModel(ctx, &core.Model{ID: cfg.Model}); err != nil {
		return nil, fmt.Errorf("failed to select model %s: %w", cfg.Model, err)
	}

	a, err := agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithLogger(&l),
		bootstrap.WithSystemPrompt("You name lecture slides. Answer with a title only."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &OllamaGenerator{agent: a}, nil
}

// Complete runs the agent on the prompt and returns the model's answer
func (g *OllamaGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.agent.Run(ctx, agent.WithInput(prompt))
	if err != nil {
		return "", err
	}

	// The model's answer is the last message
	last := resp.Pop()
	if last == nil {
		return "", fmt.Errorf("no response messages received from model")
	}
	return last.Content, nil
}
