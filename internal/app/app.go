package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskmaster-io/backend/internal/adapter/postgres"
	brainnoderepo "github.com/taskmaster-io/backend/internal/adapter/postgres/brainnode"
	canvasrepo "github.com/taskmaster-io/backend/internal/adapter/postgres/canvas"
	noderepo "github.com/taskmaster-io/backend/internal/adapter/postgres/node"
	sharerepo "github.com/taskmaster-io/backend/internal/adapter/postgres/share"
	"github.com/taskmaster-io/backend/internal/auth"
	"github.com/taskmaster-io/backend/internal/collab"
	"github.com/taskmaster-io/backend/internal/config"
	accesssvc "github.com/taskmaster-io/backend/internal/service/access"
	canvassvc "github.com/taskmaster-io/backend/internal/service/canvas"
	sharesvc "github.com/taskmaster-io/backend/internal/service/share"
	syncsvc "github.com/taskmaster-io/backend/internal/service/sync"
	"github.com/taskmaster-io/backend/internal/transport/middleware"
	"github.com/taskmaster-io/backend/internal/transport/rest"
	"github.com/taskmaster-io/backend/internal/transport/ws"
)

// Run is the application entry point. It loads configuration, wires the
// storage adapters, services, and the collaboration engine, and serves HTTP
// until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	tx := postgres.NewTxManager(pool)

	canvases := canvasrepo.New(pool)
	nodes := noderepo.New(pool)
	brainNodes := brainnoderepo.New(pool)
	shares := sharerepo.New(pool)

	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	access := accesssvc.NewService(logger, canvases, shares)
	canvasSvc := canvassvc.NewService(logger, canvases, nodes, brainNodes, cfg.Canvas)
	shareSvc := sharesvc.NewService(logger, canvases, shares)
	commit := syncsvc.NewService(logger, canvases, nodes, brainNodes, tx, cfg.Canvas.MaxNodes)

	// The sync engine is an explicit instance owned here, never a package
	// singleton; every connection handler receives it by reference.
	engine := collab.NewEngine(logger)
	monitor := collab.NewLivenessMonitor(engine, cfg.Collab.PingInterval, logger)
	go monitor.Run(ctx)

	wsHandler := ws.NewHandler(engine, access, commit, canvasSvc, jwtMgr, cfg.Collab, logger)

	canvasHandler := rest.NewCanvasHandler(canvasSvc, commit, engine, logger)
	shareHandler := rest.NewShareHandler(shareSvc, canvasSvc, logger)
	healthHandler := rest.NewHealthHandler(pool, BuildVersion())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/live", healthHandler.Live)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("/ws", wsHandler.ServeHTTP)
	canvasHandler.Register(mux)
	shareHandler.Register(mux)

	limiter := middleware.NewRateLimiter(5 * time.Minute)
	defer limiter.Stop()

	chain := middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		middleware.Logger(logger),
		limiter.Limit(cfg.Server.RateLimitPerMin),
		middleware.Auth(jwtMgr),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chain(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	engine.Shutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
