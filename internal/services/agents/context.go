package agents

import (
	"fmt"
	"strings"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

// BuildModelMessages renders history as model input from the point of view of
// self. Its own messages become assistant turns, everything else is user
// input labelled with the speaker. Deltas are skipped and consecutive turns
// of the same role are merged.
func BuildModelMessages(history []models.Message, self string) []interfaces.ModelMessage {
	var out []interfaces.ModelMessage
	add := func(role interfaces.Role, parts ...models.ContentPart) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, interfaces.ModelMessage{Role: role, Parts: parts})
	}

	for _, msg := range history {
		role := interfaces.RoleUser
		if msg.Source == self {
			role = interfaces.RoleAssistant
		}

		switch msg.Type {
		case models.MessageStreamingDelta:
			continue

		case models.MessageText:
			if msg.Content == "" {
				continue
			}
			text := msg.Content
			if msg.Source != self && msg.Source != models.SourceUser {
				text = fmt.Sprintf("[%s]\n%s", msg.Source, msg.Content)
			}
			add(role, models.ContentPart{Text: text})

		case models.MessageToolCallRequest:
			add(role, models.ContentPart{Text: describeToolCalls(msg)})

		case models.MessageToolCallResult:
			for _, result := range msg.ToolResults {
				add(interfaces.RoleUser, models.ContentPart{
					Text: fmt.Sprintf("[%s results]\n%s", result.Name, result.Content),
				})
			}

		case models.MessageMultiModal:
			add(interfaces.RoleUser, msg.Parts...)
		}
	}
	return out
}

func describeToolCalls(msg models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", msg.Source)
	for _, call := range msg.ToolCalls {
		queries, err := retrieval.ParseSearchArguments(call.Arguments)
		if err != nil {
			fmt.Fprintf(&b, "\nCalled %s with %s", call.Name, call.Arguments)
			continue
		}
		fmt.Fprintf(&b, "\nSearched the index with: %s", strings.Join(queries, "; "))
	}
	return b.String()
}

// UserQuestion returns the first user message in history
func UserQuestion(history []models.Message) string {
	for _, msg := range history {
		if msg.Source == models.SourceUser && msg.Type == models.MessageText {
			return msg.Content
		}
	}
	return ""
}
