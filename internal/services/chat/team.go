package chat

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/agents"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

// TeamConfig holds what a team needs for one session
type TeamConfig struct {
	Mode      models.Mode
	Research  interfaces.ModelClient
	Answer    interfaces.ModelClient
	Retrieval *retrieval.Service
	Cache     *retrieval.FigureCache
	Limits    common.RetrievalConfig
	Chat      common.ChatConfig
	Options   agents.Options
	Observe   func(retrieval.Outcome) // may be nil
	Logger    arbor.ILogger
}

// NewTeam builds the participants and termination rule for the mode.
// Single-pass searches with one term per call; iterative research sends
// term lists, a broad first pass and a deeper second one.
func NewTeam(cfg TeamConfig) *Team {
	answerer := func(name, description, prompt string) agents.Participant {
		var p agents.Participant = agents.NewAnswerer(name, description, prompt, cfg.Answer, cfg.Options)
		if cfg.Chat.Multimodal {
			p = agents.WithFigures(p, cfg.Cache)
		}
		return p
	}
	researcher := func(name, prompt string, limit int, multi bool) agents.Participant {
		tool := cfg.Retrieval.NewSearchTool(cfg.Cache, limit, multi, cfg.Observe)
		return agents.NewResearcher(name, prompt, cfg.Research, tool, cfg.Options, cfg.Logger)
	}

	team := &Team{
		Mode:         cfg.Mode,
		Participants: make(map[string]agents.Participant),
	}
	add := func(p agents.Participant) {
		team.Participants[p.Name()] = p
	}

	switch cfg.Mode {
	case models.ModeIterative:
		add(researcher(models.ParticipantResearcher, agents.BreadthResearcherPrompt, cfg.Limits.BreadthTop, true))
		add(answerer(models.ParticipantAnswerer, "An agent that can answer questions.", agents.AnswererPrompt))
		add(researcher(models.ParticipantReviseResearcher, agents.DepthResearcherPrompt, cfg.Limits.DepthTop, true))
		add(answerer(models.ParticipantReviseAnswerer, "An agent that can revise answers.", agents.ReviseAnswererPrompt))
	default:
		add(researcher(models.ParticipantResearcher, agents.ResearcherPrompt, cfg.Limits.SinglePassTop, false))
		add(answerer(models.ParticipantAnswerer, "An agent that can answer questions.", agents.AnswererPrompt))
	}

	terminals := cfg.Mode.Terminals()
	conditions := []Condition{
		SourceMatch(terminals...),
		MaxMessages(cfg.Chat.MaxMessages),
	}
	if cfg.Chat.TerminationPhrase != "" {
		conditions = append(conditions, TextMention(cfg.Chat.TerminationPhrase, terminals...))
	}
	team.Termination = AnyOf(conditions...)

	return team
}
