// Package server orchestrates all components: responder registry, COMMS
// client, transport, router, dispatch coordinator and the HTTP endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/agent-supervisor/internal/config"
	"github.com/morezero/agent-supervisor/pkg/bootstrap"
	"github.com/morezero/agent-supervisor/pkg/commsutil"
	"github.com/morezero/agent-supervisor/pkg/db"
	"github.com/morezero/agent-supervisor/pkg/dispatch"
	"github.com/morezero/agent-supervisor/pkg/events"
	"github.com/morezero/agent-supervisor/pkg/registry"
	"github.com/morezero/agent-supervisor/pkg/router"
	"github.com/morezero/agent-supervisor/pkg/transport"
)

const logPrefix = "server:server"

// Server is the agent-supervisor orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	reg        *registry.Registry
	coord      *dispatch.Coordinator
	httpServer *http.Server
}

// Run starts the supervisor, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting agent-supervisor", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Load the responder set (database when configured, bootstrap
	// file otherwise). The registry is fixed for the process lifetime.
	descs, err := loadResponders(ctx, cfg)
	if err != nil {
		return err
	}
	reg, err := registry.NewRegistry(descs)
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Registered %d responders", logPrefix, reg.Len()))

	s := &Server{cfg: cfg, reg: reg}

	// Step 2: Connect to COMMS
	if cfg.COMMSEnabled {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
	}

	// Step 3: Transport (HTTP always, COMMS when connected), health recorded
	// on the registry.
	var commsTransport transport.Client
	if s.nc != nil {
		commsTransport = transport.NewCommsClient(s.nc, reg)
	}
	tclient := transport.NewMux(transport.NewHTTPClient(reg), commsTransport)

	// Step 4: Router. The model-backed classifier sits behind the classify
	// subject; the keyword classifier is the in-process default.
	var classifier router.Classifier
	if cfg.UseCommsClassifier {
		classifier = router.NewCommsClassifier(s.nc, cfg.ClassifySubject, cfg.ClassifyTimeout)
	} else {
		classifier = router.NewKeywordClassifier()
	}
	rt := router.NewRouter(classifier)

	// Step 5: Exchange events
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if s.nc != nil {
		opts := &events.CommsPublisherOpts{}
		if cfg.ExchangeEventSubject != "" {
			opts.GlobalSubject = cfg.ExchangeEventSubject
		}
		publisher = events.NewCommsPublisher(s.nc, opts)
	}

	// Step 6: Dispatch coordinator
	s.coord = dispatch.NewCoordinator(dispatch.NewCoordinatorParams{
		Registry:   reg,
		Router:     rt,
		Transport:  tclient,
		Publisher:  publisher,
		Timeout:    cfg.ResponderTimeout,
		RetryDelay: cfg.RetryDelay,
	})

	// Step 7: Serve chat over COMMS request/reply
	var chatSub *comms.Subscription
	if s.nc != nil {
		subject := cfg.SupervisorSubject
		if subject == "" {
			subject = commsutil.SubjectSupervisorChat
		}
		chatSub, err = s.nc.Subscribe(subject, s.handleCommsChat(ctx))
		if err != nil {
			s.nc.Close()
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
		}
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))
	}

	// Step 8: HTTP endpoint
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.buildMux()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Agent-supervisor is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	if chatSub != nil {
		chatSub.Unsubscribe()
	}
	s.httpServer.Shutdown(ctx)
	if s.nc != nil {
		s.nc.Drain()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// loadResponders reads descriptors from the database when DATABASE_URL is
// set, otherwise from the bootstrap file (or the embedded defaults).
func loadResponders(ctx context.Context, cfg *config.Config) ([]registry.ResponderDescriptor, error) {
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		defer pool.Close()

		if cfg.RunMigrations {
			migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}

		descs, err := db.NewStore(pool).ListResponders(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to list responders: %w", logPrefix, err)
		}
		if len(descs) > 0 {
			return descs, nil
		}
		slog.Warn(fmt.Sprintf("%s - database has no responders, falling back to bootstrap file", logPrefix))
	}

	bcfg, err := bootstrap.LoadRespondersConfig(cfg.RespondersFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load responders config: %w", logPrefix, err)
	}
	if err := bcfg.Validate(cfg.ProtocolConstraint); err != nil {
		return nil, err
	}
	return bcfg.Descriptors(), nil
}
