package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/agents"
)

// funcParticipant adapts a function to the Participant interface
type funcParticipant struct {
	name    string
	respond func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error
}

func (p *funcParticipant) Name() string        { return p.name }
func (p *funcParticipant) Description() string { return "test participant" }
func (p *funcParticipant) Respond(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
	return p.respond(ctx, history, emit)
}

func say(name, text string) *funcParticipant {
	return &funcParticipant{name: name, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		return emit(models.Message{Source: name, Type: models.MessageText, Content: text})
	}}
}

func singlePassTeam(researcher, answerer agents.Participant, termination Condition) *Team {
	return &Team{
		Mode: models.ModeSinglePass,
		Participants: map[string]agents.Participant{
			models.ParticipantResearcher: researcher,
			models.ParticipantAnswerer:   answerer,
		},
		Termination: termination,
	}
}

type observed struct {
	messages []models.Message
}

func (o *observed) observe(msg models.Message) error {
	o.messages = append(o.messages, msg)
	return nil
}

func TestOrchestrator_SinglePassEndsOnAnswer(t *testing.T) {
	team := singlePassTeam(
		say(models.ParticipantResearcher, "found it"),
		say(models.ParticipantAnswerer, "the answer"),
		AnyOf(SourceMatch(models.ParticipantAnswerer), MaxMessages(15)),
	)
	orch := NewOrchestrator(team, arbor.NewLogger())

	var turns []string
	orch.OnTurn(func(participant string, messages int) {
		turns = append(turns, fmt.Sprintf("%s:%d", participant, messages))
	})

	var obs observed
	outcome, err := orch.Run(context.Background(), "question", obs.observe)
	require.NoError(t, err)

	assert.Equal(t, StopSourceMatch, outcome.StopReason)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, StateTerminated, orch.State())
	require.Len(t, outcome.History, 3)
	assert.Equal(t, models.SourceUser, outcome.History[0].Source)
	assert.Equal(t, "question", outcome.History[0].Content)
	assert.Equal(t, outcome.History, obs.messages, "observer sees every message in order")
	assert.Equal(t, []string{"research_agent:1", "answer_agent:1"}, turns)

	for _, msg := range outcome.History {
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	}
}

func TestOrchestrator_NoFurtherTurn(t *testing.T) {
	team := singlePassTeam(
		say(models.ParticipantResearcher, "found it"),
		say(models.ParticipantAnswerer, "the answer"),
		MaxMessages(15),
	)

	outcome, err := NewOrchestrator(team, arbor.NewLogger()).Run(context.Background(), "question", (&observed{}).observe)
	require.NoError(t, err)
	assert.Equal(t, StopNoFurtherTurn, outcome.StopReason)
	assert.Equal(t, 3, models.CountMessages(outcome.History))
}

func TestOrchestrator_MessageCapIsExact(t *testing.T) {
	// A participant that never stops talking; only the cap ends the loop
	chatty := &funcParticipant{name: models.ParticipantResearcher, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		for i := 0; ; i++ {
			if err := emit(models.Message{Source: models.ParticipantResearcher, Type: models.MessageStreamingDelta, Content: "."}); err != nil {
				return err
			}
			if err := emit(models.Message{Source: models.ParticipantResearcher, Type: models.MessageText, Content: fmt.Sprint(i)}); err != nil {
				return err
			}
		}
	}}
	team := singlePassTeam(chatty, say(models.ParticipantAnswerer, "never reached"),
		AnyOf(SourceMatch(models.ParticipantAnswerer), MaxMessages(15)))

	outcome, err := NewOrchestrator(team, arbor.NewLogger()).Run(context.Background(), "question", (&observed{}).observe)
	require.NoError(t, err)

	assert.Equal(t, StopMaxMessages, outcome.StopReason)
	assert.Equal(t, 15, models.CountMessages(outcome.History))
	assert.Equal(t, models.ParticipantResearcher, models.LastSpeaker(outcome.History))
}

func TestOrchestrator_CancellationStopsSilently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocking := &funcParticipant{name: models.ParticipantAnswerer, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		cancel()
		<-ctx.Done()
		// a late emit after cancellation must be refused
		return emit(models.Message{Source: models.ParticipantAnswerer, Type: models.MessageText, Content: "late"})
	}}
	team := singlePassTeam(say(models.ParticipantResearcher, "found it"), blocking, SourceMatch(models.ParticipantAnswerer))

	var obs observed
	outcome, err := NewOrchestrator(team, arbor.NewLogger()).Run(ctx, "question", obs.observe)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, outcome.StopReason)
	require.Len(t, obs.messages, 2)
	assert.Equal(t, models.ParticipantResearcher, obs.messages[1].Source)
}

func TestOrchestrator_BackendErrorEndsConversation(t *testing.T) {
	failing := &funcParticipant{name: models.ParticipantResearcher, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		return &models.ModelBackendError{Provider: "claude", Err: errors.New("overloaded")}
	}}
	team := singlePassTeam(failing, say(models.ParticipantAnswerer, "never reached"), SourceMatch(models.ParticipantAnswerer))

	outcome, err := NewOrchestrator(team, arbor.NewLogger()).Run(context.Background(), "question", (&observed{}).observe)
	require.NoError(t, err)
	assert.Equal(t, StopError, outcome.StopReason)

	var backendErr *models.ModelBackendError
	require.ErrorAs(t, outcome.Err, &backendErr)
	assert.True(t, models.IsTerminal(outcome.Err))
	assert.Len(t, outcome.History, 1)
}

func TestOrchestrator_SessionDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	slow := &funcParticipant{name: models.ParticipantResearcher, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	team := singlePassTeam(slow, say(models.ParticipantAnswerer, "never reached"), SourceMatch(models.ParticipantAnswerer))

	outcome, err := NewOrchestrator(team, arbor.NewLogger()).Run(ctx, "question", (&observed{}).observe)
	require.NoError(t, err)
	assert.Equal(t, StopError, outcome.StopReason)

	var timeout *models.BackendTimeoutError
	require.ErrorAs(t, outcome.Err, &timeout)
}

func TestOrchestrator_SilentParticipantIsAnError(t *testing.T) {
	silent := &funcParticipant{name: models.ParticipantResearcher, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		return nil
	}}
	team := singlePassTeam(silent, say(models.ParticipantAnswerer, "never reached"), SourceMatch(models.ParticipantAnswerer))

	outcome, err := NewOrchestrator(team, arbor.NewLogger()).Run(context.Background(), "question", (&observed{}).observe)
	require.NoError(t, err)
	assert.Equal(t, StopError, outcome.StopReason)
	assert.ErrorContains(t, outcome.Err, "produced no message")
}

func TestOrchestrator_ParticipantSeesSnapshot(t *testing.T) {
	var seen int
	researcher := &funcParticipant{name: models.ParticipantResearcher, respond: func(ctx context.Context, history []models.Message, emit agents.EmitFunc) error {
		seen = len(history)
		if err := emit(models.Message{Source: models.ParticipantResearcher, Type: models.MessageText, Content: "a"}); err != nil {
			return err
		}
		assert.Len(t, history, seen, "history passed to a participant does not grow under it")
		return nil
	}}
	team := singlePassTeam(researcher, say(models.ParticipantAnswerer, "done"), SourceMatch(models.ParticipantAnswerer))

	_, err := NewOrchestrator(team, arbor.NewLogger()).Run(context.Background(), "question", (&observed{}).observe)
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}
