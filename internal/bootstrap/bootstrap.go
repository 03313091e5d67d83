package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"liveness-playground/internal/app/session"
	"liveness-playground/internal/domain/endpoints"
	endpointstore "liveness-playground/internal/domain/endpoints/store"
	domainimage "liveness-playground/internal/domain/image"
	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/domain/liveness/saas"
	"liveness-playground/internal/domain/liveness/sdk"
	"liveness-playground/internal/domain/notify"
	"liveness-playground/internal/domain/preview"
	platformconfig "liveness-playground/internal/platform/config"
	platformerrors "liveness-playground/internal/platform/errors"
	platformlogging "liveness-playground/internal/platform/logging"
	platformobservability "liveness-playground/internal/platform/observability"
	platformstorage "liveness-playground/internal/platform/storage"
	httptransport "liveness-playground/internal/transport/http"
	httpendpoints "liveness-playground/internal/transport/http/endpoints"
	httpliveness "liveness-playground/internal/transport/http/liveness"
	httppreviews "liveness-playground/internal/transport/http/previews"
	httpsystem "liveness-playground/internal/transport/http/system"
	httptools "liveness-playground/internal/transport/http/tools"
	"liveness-playground/internal/transport/ws"
)

// NotificationsPath is where websocket clients subscribe to batch toasts.
const NotificationsPath = "/ws/notifications"

// Options configures Run.
type Options struct {
	ConfigPath string
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	configPath            string
	config                *platformconfig.Config
	configSource          string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	registry              *endpoints.Registry
	previews              *preview.Store
	ingester              *domainimage.Ingester
	saas                  *saas.Client
	sdk                   *sdk.Client
	bus                   *notify.Bus
	hub                   *ws.Hub
	sessions              *session.Manager
}

// Run starts the playground and blocks until a signal arrives or ctx ends.
func Run(ctx context.Context, opts Options) error {
	state := &appState{configPath: opts.ConfigPath}

	steps := InitGraph()
	err := executeInitSteps(ctx, steps, state)
	defer state.close()
	if err != nil {
		return err
	}

	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(rootCtx)

	// A failing service cancels groupCtx and so ends the wait below.
	signalCtx, stop := signal.NotifyContext(groupCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation graph")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("BOOT", "  %s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag("BOOT", "  %s (%s) <- %s", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "execute init steps", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(platformerrors.KindBootstrap, step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-registry",
			Title:     "Initialise SDK endpoint registry",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initRegistryStep,
		},
		{
			ID:        "media:init-pipeline",
			Title:     "Initialise image ingestion and previews",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initMediaStep,
		},
		{
			ID:        "clients:init-liveness",
			Title:     "Initialise SaaS and SDK clients",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindTransport,
			Execute:   initClientsStep,
		},
		{
			ID:        "notify:init-bus",
			Title:     "Initialise notification bus",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initNotifyStep,
		},
		{
			ID:        "session:init-manager",
			Title:     "Initialise session manager",
			DependsOn: []string{"media:init-pipeline", "clients:init-liveness", "notify:init-bus"},
			Execute:   initSessionStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	res, err := platformconfig.NewLoader().WithPath(state.configPath).Load()
	if err != nil {
		return err
	}
	state.config = res.Config
	state.configSource = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger
	logger.InfoTag("BOOT", "logging ready [%s] config from %s", state.config.Log.Level, state.configSource)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initRegistryStep(ctx context.Context, state *appState) error {
	const op = "storage:init-registry"
	cfg := state.config.Registry

	storeCfg := endpointstore.Config{Driver: strings.ToLower(strings.TrimSpace(cfg.Store))}
	var deps endpointstore.Dependencies

	switch storeCfg.Driver {
	case endpointstore.DriverSQLite:
		db, err := platformstorage.Open(cfg.SQLite.DSN)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to open registry database", err)
		}
		state.db = db
		deps.SQLiteDB = db
		applied, err := platformstorage.AppliedMigrations(db)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to read migration history", err)
		}
		for _, record := range applied {
			state.logger.InfoTag("BOOT", "migration %s applied %s (%s)", record.Version, record.AppliedAt.Format(time.RFC3339), record.Name)
		}
		storeCfg.SQLite = &endpointstore.SQLiteConfig{DSN: cfg.SQLite.DSN}
	case endpointstore.DriverRedis:
		storeCfg.Redis = &endpointstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	}

	store, err := endpointstore.New(storeCfg, deps)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to create endpoint store", err)
	}
	state.registry = endpoints.NewRegistry(store, state.logger)

	seeds := make([]endpoints.Endpoint, 0, len(state.config.SDK.Endpoints))
	for _, ep := range state.config.SDK.Endpoints {
		seeds = append(seeds, endpoints.Endpoint{Tag: ep.Tag, URL: ep.URL, Headers: ep.Headers})
	}
	if err := state.registry.Seed(ctx, seeds); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to seed endpoint registry", err)
	}
	state.logger.InfoTag("BOOT", "endpoint registry ready (%s)", storeCfg.Driver)
	return nil
}

func initMediaStep(_ context.Context, state *appState) error {
	ingest := state.config.Ingest
	state.ingester = domainimage.NewIngester(domainimage.Limits{
		MaxFileSize:    ingest.MaxFileSize,
		MaxWidth:       ingest.MaxWidth,
		MaxHeight:      ingest.MaxHeight,
		MaxPixels:      ingest.MaxPixels,
		AllowedFormats: ingest.AllowedFormats,
	}, state.logger)
	state.previews = preview.NewStore(state.logger)
	return nil
}

func initClientsStep(_ context.Context, state *appState) error {
	client, err := saas.New(saas.Config{
		URL:     state.config.SaaS.URL,
		Timeout: state.config.SaaS.Timeout,
	}, state.logger)
	if err != nil {
		return err
	}
	state.saas = client
	state.sdk = sdk.New(state.logger)
	return nil
}

func initNotifyStep(_ context.Context, state *appState) error {
	state.bus = notify.NewBus(state.logger)
	state.hub = ws.NewHub(state.logger)
	if err := state.bus.Subscribe(state.hub.Broadcast); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "notify:init-bus", "failed to subscribe websocket hub", err)
	}
	return nil
}

func initSessionStep(_ context.Context, state *appState) error {
	state.sessions = session.NewManager(func(id string) *liveness.Evaluator {
		return liveness.NewEvaluator(liveness.Deps{
			Ingester:   state.ingester,
			Previews:   state.previews,
			SaaS:       state.saas,
			SDK:        state.sdk,
			Notifier:   state.bus,
			Logger:     state.logger,
			SDKTimeout: state.config.SDK.Timeout,
			Session:    id,
		})
	}, state.config.Server.SessionTTL, state.logger)
	return nil
}

// close releases everything the init steps created, in reverse order.
func (s *appState) close() {
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.hub != nil {
		s.hub.CloseAll(ws.ErrHubShutdown)
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.registry != nil {
		if err := s.registry.Close(context.Background()); err != nil {
			s.logger.WarnTag("BOOT", "endpoint registry did not close cleanly: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.WarnTag("BOOT", "registry database did not close cleanly: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.observabilityShutdown(shutdownCtx); err != nil {
			s.logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
		}
		cancel()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// buildRouter mounts every HTTP service on a fresh engine.
func buildRouter(ctx context.Context, state *appState) (*gin.Engine, error) {
	cfg := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{Config: cfg, Logger: logger})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	api := httpRouter.API

	index := filepath.Join(cfg.Server.StaticDir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			httptransport.RespondError(c, http.StatusNotFound, "api not found", gin.H{})
			return
		}
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.File(index)
	})

	livenessService, err := httpliveness.NewService(cfg, state.registry, logger)
	if err != nil {
		return nil, err
	}
	endpointService, err := httpendpoints.NewService(state.registry, logger)
	if err != nil {
		return nil, err
	}
	previewService, err := httppreviews.NewService(state.previews, cfg.Previews.MaxThumbnailEdge, logger)
	if err != nil {
		return nil, err
	}
	toolService := httptools.NewService(cfg.Ingest.MaxFileSize, logger)
	systemService := httpsystem.NewService(httpsystem.Counters{
		Sessions:  state.sessions.Count,
		Previews:  state.previews.Len,
		Listeners: state.hub.Count,
		Endpoints: func(ctx context.Context) (int, error) {
			list, err := state.registry.List(ctx)
			return len(list), err
		},
	}, logger)

	sessionScoped := api.Group("", httptransport.SessionMiddleware(state.sessions))
	if err := livenessService.Register(ctx, sessionScoped); err != nil {
		return nil, err
	}

	registrars := []interface {
		Register(context.Context, *gin.RouterGroup) error
	}{endpointService, previewService, toolService, systemService}
	for _, r := range registrars {
		if err := r.Register(ctx, api); err != nil {
			return nil, err
		}
	}

	notifications := ws.NewRouter(state.hub, logger, ws.RouterOptions{})
	router.GET(NotificationsPath, gin.WrapF(notifications.Handle))

	return router, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	router, err := buildRouter(groupCtx, state)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build http router", err)
	}

	cfg := state.config
	logger := state.logger
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "playground listening on http://localhost:%d", cfg.Server.Port)
		logger.InfoTag("HTTP", "notifications at ws://localhost:%d%s", cfg.Server.Port, NotificationsPath)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if _, err := startHTTPServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	g.Go(func() error {
		return state.sessions.Run(groupCtx)
	})
	return nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
