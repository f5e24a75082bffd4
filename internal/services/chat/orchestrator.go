package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/agents"
)

// State is a step of the orchestrator loop
type State string

const (
	StateAwaitingRoute       State = "awaiting_route"
	StateDispatching         State = "dispatching"
	StateCollectingEvents    State = "collecting_events"
	StateCheckingTermination State = "checking_termination"
	StateTerminated          State = "terminated"
)

// errTerminated stops the active participant once a termination condition fires
var errTerminated = errors.New("conversation terminated")

// ObserveFunc receives every message appended to the history, in order.
// Returning an error aborts the conversation with that error.
type ObserveFunc func(models.Message) error

// TurnFunc is called after each participant turn
type TurnFunc func(participant string, messages int)

// Outcome is the end state of one conversation
type Outcome struct {
	History    []models.Message
	StopReason string
	Err        error // terminal error when StopReason is StopError
}

// Orchestrator drives one conversation: route, dispatch, collect, check
// termination, repeat. An instance serves a single session.
type Orchestrator struct {
	team   *Team
	onTurn TurnFunc
	logger arbor.ILogger
	state  State
}

// NewOrchestrator creates an orchestrator for a team
func NewOrchestrator(team *Team, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		team:   team,
		logger: logger,
		state:  StateAwaitingRoute,
	}
}

// OnTurn registers a callback invoked after every completed turn
func (o *Orchestrator) OnTurn(fn TurnFunc) {
	o.onTurn = fn
}

// State returns the current loop state
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(state State) {
	o.state = state
	o.logger.Debug().Str("state", string(state)).Msg("Orchestrator transition")
}

// Run processes one user task until termination. Messages are appended to
// the history and passed to observe as they arrive.
//
// Cancelling ctx aborts the in-flight call and returns ctx.Err() without
// observing anything further. A backend failure ends the conversation with
// StopError and the failure in Outcome.Err.
func (o *Orchestrator) Run(ctx context.Context, task string, observe ObserveFunc) (*Outcome, error) {
	var history []models.Message
	stopReason := ""

	record := func(msg models.Message) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}

		history = append(history, msg)
		if err := observe(msg); err != nil {
			return err
		}
		if msg.IsDelta() {
			return nil
		}

		o.transition(StateCheckingTermination)
		if reason, done := o.team.Termination(history); done {
			stopReason = reason
			return errTerminated
		}
		o.transition(StateCollectingEvents)
		return nil
	}

	err := record(models.Message{
		Source:  models.SourceUser,
		Type:    models.MessageText,
		Content: task,
	})

	for err == nil {
		o.transition(StateAwaitingRoute)
		next, ok := Select(o.team.Mode, history)
		if !ok {
			stopReason = StopNoFurtherTurn
			break
		}

		participant, ok := o.team.Participants[next]
		if !ok {
			err = fmt.Errorf("no participant registered for %s", next)
			break
		}

		o.logger.Info().
			Str("mode", string(o.team.Mode)).
			Str("participant", next).
			Int("messages", models.CountMessages(history)).
			Msg("Dispatching turn")

		o.transition(StateDispatching)
		before := models.CountMessages(history)
		snapshot := append([]models.Message(nil), history...)

		o.transition(StateCollectingEvents)
		err = participant.Respond(ctx, snapshot, record)

		produced := models.CountMessages(history) - before
		if o.onTurn != nil && produced > 0 {
			o.onTurn(next, produced)
		}
		if err == nil && produced == 0 {
			err = fmt.Errorf("participant %s produced no message", next)
		}
	}

	o.transition(StateTerminated)
	outcome := &Outcome{History: history, StopReason: stopReason}

	switch {
	case errors.Is(err, errTerminated), err == nil:
		o.logger.Info().
			Str("stop_reason", outcome.StopReason).
			Int("messages", models.CountMessages(history)).
			Msg("Conversation terminated")
		return outcome, nil

	case errors.Is(ctx.Err(), context.Canceled):
		outcome.StopReason = StopCancelled
		o.logger.Info().Msg("Conversation cancelled")
		return outcome, ctx.Err()

	default:
		if errors.Is(err, context.DeadlineExceeded) {
			var timeout *models.BackendTimeoutError
			if !errors.As(err, &timeout) {
				err = &models.BackendTimeoutError{Backend: "conversation", Err: err}
			}
		}
		outcome.StopReason = StopError
		outcome.Err = err
		o.logger.Warn().Err(err).Msg("Conversation failed")
		return outcome, nil
	}
}

// Team is the fixed set of participants and the termination rule of one mode
type Team struct {
	Mode         models.Mode
	Participants map[string]agents.Participant
	Termination  Condition
}
