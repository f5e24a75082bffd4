package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/handlers"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/services/chat"
	"github.com/ternarybob/quarry/internal/services/events"
	"github.com/ternarybob/quarry/internal/services/llm"
	"github.com/ternarybob/quarry/internal/services/metrics"
	"github.com/ternarybob/quarry/internal/services/pdf"
	"github.com/ternarybob/quarry/internal/services/retrieval"
	"github.com/ternarybob/quarry/internal/services/search"
	"github.com/ternarybob/quarry/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Event bus for conversation lifecycle events
	EventService interfaces.EventService
	Metrics      *metrics.Collector

	// Retrieval and model backends
	SearchBackend    interfaces.SearchBackend
	RetrievalService *retrieval.Service
	Providers        *llm.ProviderFactory

	// Conversation services
	ChatService  *chat.Service
	PDFService   *pdf.Service
	AuditStorage interfaces.AuditStorage

	// HTTP handlers
	APIHandler  *handlers.APIHandler
	ChatHandler *handlers.ChatHandler
	WSHandler   *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Bool("audit_enabled", app.AuditStorage != nil).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initServices(ctx context.Context) error {
	var factoryOpts []llm.FactoryOption
	if a.Config.Metrics.Enabled {
		a.Metrics = metrics.NewCollector()
		if err := a.Metrics.Subscribe(a.EventService); err != nil {
			return fmt.Errorf("failed to subscribe metrics collector: %w", err)
		}
		factoryOpts = append(factoryOpts, llm.WithCallObserver(a.Metrics.ObserveCall))
	}

	a.SearchBackend = search.NewBackend(ctx, a.Config, a.Logger)
	a.RetrievalService = retrieval.NewService(a.SearchBackend, a.Config.Retrieval, a.Logger)

	a.Providers = llm.NewProviderFactory(a.Config, a.Logger, factoryOpts...)
	clients, err := a.Providers.NewRoleClients(ctx)
	if err != nil {
		return err
	}

	audit, err := storage.NewAuditStorage(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to open audit storage: %w", err)
	}
	a.AuditStorage = audit

	opts := []chat.ServiceOption{chat.WithEventService(a.EventService)}
	if a.AuditStorage != nil {
		opts = append(opts, chat.WithAuditStorage(a.AuditStorage))
	}
	a.ChatService = chat.NewService(a.Config, clients, a.RetrievalService, a.Logger, opts...)
	a.PDFService = pdf.NewService(a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Config, a.ChatService, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.PDFService, a.AuditStorage, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.ChatService, a.Config.WebSocket, a.Logger)
}

// Close releases services in reverse order of creation
func (a *App) Close() error {
	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.AuditStorage != nil {
		if err := a.AuditStorage.Close(); err != nil {
			return fmt.Errorf("failed to close audit storage: %w", err)
		}
		a.Logger.Info().Msg("Audit storage closed")
	}

	return nil
}
