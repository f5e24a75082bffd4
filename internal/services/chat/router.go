package chat

import "github.com/ternarybob/quarry/internal/models"

// transitions is the fixed control-flow graph of each mode: last speaker -> next speaker
var transitions = map[models.Mode]map[string]string{
	models.ModeSinglePass: {
		models.SourceUser:            models.ParticipantResearcher,
		models.ParticipantResearcher: models.ParticipantAnswerer,
	},
	models.ModeIterative: {
		models.SourceUser:                  models.ParticipantResearcher,
		models.ParticipantResearcher:       models.ParticipantAnswerer,
		models.ParticipantAnswerer:         models.ParticipantReviseResearcher,
		models.ParticipantReviseResearcher: models.ParticipantReviseAnswerer,
	},
}

// Select returns the participant that speaks next. Only the source of the
// last message matters. ok is false when the mode has no further turn.
func Select(mode models.Mode, history []models.Message) (next string, ok bool) {
	next, ok = transitions[mode][models.LastSpeaker(history)]
	return next, ok
}
