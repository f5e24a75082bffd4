package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/app"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/transcript"
)

// runQuery runs one conversation from the command line. Answer deltas are
// printed as they arrive, then the full transcript. Returns the exit code.
func runQuery(ctx context.Context, config *common.Config, logger arbor.ILogger, query, mode string) int {
	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return 1
	}
	defer application.Close()

	req := interfaces.ResearchRequest{Query: query, Mode: models.Mode(mode)}
	renderer := transcript.NewRenderer(req.Mode, query)

	emit := func(event models.Event) error {
		renderer.Apply(event)
		if event.Type == models.EventStreamingDelta {
			fmt.Fprint(os.Stderr, event.Text)
		}
		return nil
	}

	result, err := application.ChatService.Research(ctx, req, emit)
	fmt.Fprintln(os.Stderr)

	if result != nil {
		fmt.Println(renderer.Transcript().Markdown())
	}
	if err != nil {
		logger.Error().Err(err).Msg("Conversation failed")
		return 1
	}
	return 0
}
