package serve

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/wildtrack/mediatag-service/internal/config"
	"github.com/wildtrack/mediatag-service/internal/plugin/route/alerts"
	"github.com/wildtrack/mediatag-service/internal/plugin/route/ingest"
	"github.com/wildtrack/mediatag-service/internal/plugin/route/media"
	routesystem "github.com/wildtrack/mediatag-service/internal/plugin/route/system"
	storemetrics "github.com/wildtrack/mediatag-service/internal/plugin/store/metrics"
	"github.com/wildtrack/mediatag-service/internal/query"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
	registrymigrate "github.com/wildtrack/mediatag-service/internal/registry/migrate"
	registrynotify "github.com/wildtrack/mediatag-service/internal/registry/notify"
	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	registryroute "github.com/wildtrack/mediatag-service/internal/registry/route"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
	"github.com/wildtrack/mediatag-service/internal/security"
	"github.com/wildtrack/mediatag-service/internal/service"
	"github.com/wildtrack/mediatag-service/internal/tagging"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config          *config.Config
	Store           registrystore.Store
	Router          *gin.Engine
	Running         *RunningServer
	closeManagement func(context.Context) error
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.closeManagement != nil {
		_ = s.closeManagement(ctx)
	}
	return s.Running.Close(ctx)
}

// StartServer initializes all subsystems and starts the HTTP listener.
// Use cfg.Listener.Port=0 for a random port. Actual port: Server.Running.Port.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting media tagging service",
		"httpPort", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"objectstore", cfg.ObjectStoreType,
		"notify", cfg.NotifierType,
		"detect", cfg.DetectorType,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	// Provision backend tables
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize store. The raw store is kept for the change feed: the
	// metrics wrapper hides optional interfaces.
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	rawStore, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store := storemetrics.Wrap(rawStore)

	// Initialize object store
	objectLoader, err := registryobjectstore.Select(cfg.ObjectStoreType)
	if err != nil {
		return nil, err
	}
	objects, err := objectLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	// Initialize notifier
	notifyLoader, err := registrynotify.Select(cfg.NotifierType)
	if err != nil {
		return nil, err
	}
	notifier, err := notifyLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Initialize detector
	detectLoader, err := registrydetect.Select(cfg.DetectorType)
	if err != nil {
		return nil, err
	}
	detector, err := detectLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize detector: %w", err)
	}

	// Set up gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ManagementAccessLog {
		router.Use(security.AccessLogMiddleware())
	} else {
		router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	router.Use(corsMiddleware())

	// Mount main route plugins on the main router.
	for _, loader := range registryroute.Loaders(registryroute.RouteTypeMain) {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}

	// Mount API routes
	engine := query.New(store, objects, cfg.PresignExpiry)
	updater := tagging.NewUpdater(store)
	media.MountRoutes(router, store, engine, updater, objects, detector)
	alerts.MountRoutes(router, store)
	ingest.MountRoutes(router, store, objects, detector)

	// Start background services when the store exposes a change feed.
	if feed, ok := rawStore.(registrystore.ChangeFeed); ok {
		reconciler := service.NewSubscriptionReconciler(feed, store, notifier)
		go func() {
			if err := reconciler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("Subscription reconciler stopped", "error", err)
			}
		}()
		fanout := service.NewNotificationFanout(feed, notifier, engine)
		go func() {
			if err := fanout.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("Notification fan-out stopped", "error", err)
			}
		}()
	} else {
		log.Warn("Store has no change feed; subscription reconciliation and fan-out are disabled", "db", cfg.DatastoreType)
	}

	// Mount management route plugins. If a dedicated management port is
	// configured, run them on a bare gin engine served by the management
	// server. Otherwise mount them on the main router.
	var closeManagement func(context.Context) error
	if cfg.ManagementListenerEnabled {
		mgmtRouter := gin.New()
		mgmtRouter.Use(gin.Recovery())
		if cfg.ManagementAccessLog {
			mgmtRouter.Use(security.AccessLogMiddleware())
		}
		for _, loader := range registryroute.Loaders(registryroute.RouteTypeManagement) {
			if err := loader(mgmtRouter); err != nil {
				return nil, fmt.Errorf("failed to load management routes: %w", err)
			}
		}
		_, closeManagement, err = startListener(cfg.ManagementListener, mgmtRouter, "management")
		if err != nil {
			return nil, fmt.Errorf("failed to start management server: %w", err)
		}
	} else {
		for _, loader := range registryroute.Loaders(registryroute.RouteTypeManagement) {
			if err := loader(router); err != nil {
				return nil, fmt.Errorf("failed to load management routes: %w", err)
			}
		}
	}

	running, err := StartHTTPServer(cfg.Listener, router)
	if err != nil {
		return nil, err
	}

	log.Info("Server listening", "port", running.Port)

	routesystem.MarkReady()
	return &Server{
		Config:          cfg,
		Store:           store,
		Router:          router,
		Running:         running,
		closeManagement: closeManagement,
	}, nil
}
