package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/quarry/internal/interfaces"
)

// RoleClients holds the model clients used by each participant role
type RoleClients struct {
	Research interfaces.ModelClient
	Answer   interfaces.ModelClient
}

// NewRoleClients resolves the research and answer models from configuration.
// An empty role model falls back to the default provider's model.
func (f *ProviderFactory) NewRoleClients(ctx context.Context) (*RoleClients, error) {
	research, err := f.Client(ctx, f.config.LLM.ResearchModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create research model client: %w", err)
	}

	answer, err := f.Client(ctx, f.config.LLM.AnswerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer model client: %w", err)
	}

	f.logger.Info().
		Str("research_model", research.Name()).
		Str("answer_model", answer.Name()).
		Msg("LLM clients initialized")

	return &RoleClients{Research: research, Answer: answer}, nil
}
