package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/streamreact/companion/internal/auth"
	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/hub"
	"github.com/streamreact/companion/internal/ledger"
	"github.com/streamreact/companion/internal/logging"
	"github.com/streamreact/companion/internal/metrics"
	"github.com/streamreact/companion/internal/policy"
	store "github.com/streamreact/companion/internal/repository"
	"github.com/streamreact/companion/internal/service"
	"github.com/streamreact/companion/internal/session"
	v1 "github.com/streamreact/companion/internal/transport/http/v1"
	"github.com/streamreact/companion/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live channel and REST API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	m := metrics.New()

	wallet, err := ledger.Load(ctx, db, cfg.DefaultMaxBalance)
	if err != nil {
		return fmt.Errorf("failed to load balance: %w", err)
	}
	wallet.OnChange(func(s ledger.State) { m.SetBalance(s.Balance) })
	m.SetBalance(wallet.CurrentBalance())

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to compile access policy: %w", err)
	}

	connectionHub := hub.NewHub(log.Named("hub"))
	connectionHub.SetDropHook(func(string) { m.SlowConsumers.Inc() })

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL)
	svc := service.New(db, wallet, session.NewRegistry(), verifier, connectionHub, cfg, m, log.Named("pipeline"))

	if err := svc.Triggers().Refresh(ctx); err != nil {
		log.Warn("initial trigger load failed", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: splitOrigins(cfg.CORSOrigin),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(requestLogger(log.Named("http")))

	v1.NewHandler(svc, policyEngine, m, log.Named("api")).RegisterRoutes(e)
	e.GET("/ws", ws.NewServer(cfg, connectionHub, svc, m, log.Named("ws")).HandleWebSocket)

	log.Info("starting companion",
		zap.String("addr", cfg.Addr()),
		zap.String("env", cfg.AppEnv),
		zap.String("database", cfg.DatabaseURL),
		zap.String("balance", wallet.CurrentBalance().String()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Triggers().Run(gctx, cfg.TriggerRefresh)
	})
	g.Go(func() error {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("companion stopped")
	return nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/ws" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
