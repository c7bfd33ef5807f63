// Package runtime wires the assistant service together and manages its HTTP
// server lifecycle. It can be embedded in larger applications or run
// standalone from cmd/virtual-assistant.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/assistant/echo"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/assistant/watson"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/frontdoor/talk"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pipeline"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pkg/config"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/platform"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/server"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage"
)

// ServiceName names the service in traces.
const ServiceName = "virtual-assistant"

// Service owns the session store, the dialogue backend, the processor chain
// and the HTTP server.
type Service struct {
	// Dependencies (injected via options or built from config)
	config    *config.Config
	sessions  ports.SessionStore
	assistant ports.Assistant
	chain     ports.ProcessorChain

	// Internal state
	handler  http.Handler
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger

	mu sync.Mutex
}

// New creates a Service with the given options. Collaborators not supplied
// as options are built from the configuration.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		logger: slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	// Validate required dependencies
	if s.config == nil {
		return nil, fmt.Errorf("config required (use WithConfig or WithConfigFile)")
	}

	if s.sessions == nil {
		store, err := storage.Open(context.Background(), s.config.Session, s.logger)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		s.sessions = store
	}

	if s.assistant == nil {
		a, err := newAssistant(s.config, s.logger)
		if err != nil {
			s.sessions.Close()
			return nil, fmt.Errorf("create assistant: %w", err)
		}
		s.assistant = a
	}

	if s.chain == nil {
		chain, err := newProcessorChain(s.config, s.logger)
		if err != nil {
			s.sessions.Close()
			return nil, fmt.Errorf("create processor chain: %w", err)
		}
		s.chain = chain
	}

	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the configured port and serves in the background.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("service already started")
	}

	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln

	// In-flight requests outlive ctx so Shutdown can drain them.
	baseCtx := context.WithoutCancel(ctx)
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	// Start server in background
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("virtual assistant started",
		slog.Int("port", s.config.Server.Port),
		slog.String("base_url", s.config.Server.BaseURL),
		slog.String("assistant", s.config.Assistant.Type),
		slog.String("session_storage", s.config.Session.Storage))

	return nil
}

// Shutdown gracefully stops the server and releases the session store.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("shutting down virtual assistant")

	// Stop HTTP server
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	// Close resources
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil {
			s.logger.Error("failed to close session store", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("virtual assistant shutdown complete")
	return nil
}

// buildRouter mounts the health endpoint at the root and the talk endpoint
// under the public base URL behind the identity check.
func (s *Service) buildRouter() http.Handler {
	srv := server.New(server.Config{
		ServiceName: ServiceName,
		Timeout:     s.config.Server.Timeout,
		Logger:      s.logger,
	})

	talkHandler := talk.NewHandler(s.sessions, s.assistant, s.chain, s.logger)

	srv.Router.Route(s.config.Server.BaseURL, func(r chi.Router) {
		r.Use(server.IdentityMiddleware)
		r.Method(http.MethodPost, talk.Path, talkHandler)
	})

	s.logger.Info("registered handler",
		slog.String("method", http.MethodPost),
		slog.String("path", s.config.Server.BaseURL+talk.Path))

	return srv.Router
}

// newAssistant builds the dialogue backend named by assistant.type.
func newAssistant(cfg *config.Config, logger *slog.Logger) (ports.Assistant, error) {
	switch cfg.Assistant.Type {
	case "", "echo":
		logger.Info("using echo assistant")
		return echo.New(), nil
	case "watson":
		iamClient := &http.Client{
			Timeout:   cfg.Watson.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		ts := watson.IAMTokenSource(context.Background(), cfg.Watson.APIKey, cfg.Watson.IAMURL, iamClient)

		logger.Info("using watson assistant",
			slog.String("url", cfg.Watson.APIURL),
			slog.String("environment_id", cfg.Watson.EnvironmentID),
			slog.Bool("draft", cfg.Watson.Draft))

		return watson.New(watson.Config{
			URL:           cfg.Watson.APIURL,
			AssistantID:   cfg.Watson.AssistantID,
			EnvironmentID: cfg.Watson.EnvironmentID,
			Version:       cfg.Watson.Version,
		},
			watson.WithHTTPClient(watson.NewHTTPClient(ts, cfg.Watson.Timeout)),
			watson.WithLogger(logger.With(slog.String("component", "watson"))),
			watson.WithDraft(cfg.Watson.Draft),
		), nil
	default:
		return nil, fmt.Errorf("unknown assistant type %q", cfg.Assistant.Type)
	}
}

// newProcessorChain builds the response processors. The platform requester
// is only created when a network processor needs it.
func newProcessorChain(cfg *config.Config, logger *slog.Logger) (ports.ProcessorChain, error) {
	var requester platform.Requester
	if cfg.Lightspeed.Enabled {
		var err error
		requester, err = platform.New(cfg.Platform)
		if err != nil {
			return nil, fmt.Errorf("create platform requester: %w", err)
		}
	}

	chain, err := pipeline.NewExecutorFromConfig(cfg.Lightspeed, requester, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("processor chain configured", slog.Any("stages", chain.Names()))
	return chain, nil
}
