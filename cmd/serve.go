package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	gogrpc "google.golang.org/grpc"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/controller"
	authgrpc "github.com/vibast-solutions/ms-go-lostfound-auth/app/grpc"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/mailer"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/metrics"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/middleware"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository/memory"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository/migrations"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/secret"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/service"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/worker"
	"github.com/vibast-solutions/ms-go-lostfound-auth/config"
)

const (
	storeMySQL  = "mysql"
	storeMemory = "memory"

	healthProbeInterval = 10 * time.Second
	shutdownTimeout     = 15 * time.Second
)

var (
	serveStore   string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the HTTP (Echo) API, the gRPC health endpoint and the expiry sweeper.`,
	Run:   runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveStore, "store", storeMySQL, "credential store backend (mysql|memory)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

// Backend is everything the server needs from a credential store.
type Backend interface {
	service.CredentialStore
	authgrpc.Pinger
	worker.ExpiredDeleter
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err = configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, serveStore, serveMigrate)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open credential store")
	}
	defer closeBackend()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterMetrics(registry)

	e, err := NewHTTPServer(cfg, backend, newMailer(cfg), registry)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build HTTP server")
	}
	healthServer := authgrpc.NewHealthServer(backend, healthProbeInterval)
	grpcServer := authgrpc.NewServer(healthServer)
	sweeper := worker.NewSweeper(backend, cfg.Sweeper.Interval)

	go healthServer.Run(ctx)
	go sweeper.Run(ctx)
	go startGRPCServer(cfg, grpcServer)
	go startHTTPServer(cfg, e)

	<-ctx.Done()
	logrus.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	logrus.Info("Servers stopped")
}

func openBackend(ctx context.Context, cfg *config.Config, driver string, migrate bool) (Backend, func(), error) {
	switch driver {
	case storeMemory:
		logrus.Warn("Using the in-memory credential store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	case storeMySQL:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err = migrations.Up(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return repository.NewMySQLStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", driver)
	}
}

func newMailer(cfg *config.Config) service.Mailer {
	if cfg.Mail.Driver == config.MailDriverLog {
		return mailer.NewLogMailer(logrus.StandardLogger())
	}
	return mailer.NewSMTPMailer(
		cfg.Mail.Host,
		cfg.Mail.Port,
		cfg.Mail.Username,
		cfg.Mail.Password,
		cfg.Mail.From,
		cfg.Mail.Timeout,
		cfg.Mail.MaxRetries,
	)
}

// NewHTTPServer wires the services, auth routes, health check and metrics
// endpoint onto a new echo instance.
func NewHTTPServer(cfg *config.Config, backend Backend, mail service.Mailer, gatherer prometheus.Gatherer) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{cfg.App.BaseURL},
		AllowCredentials: true,
	}))

	hasher := secret.NewBcryptHasher(cfg.Password.BcryptCost)
	issuer := secret.NewRandomTokenIssuer()
	composer := mailer.NewComposer(cfg.App.BaseURL, cfg.Tokens.VerificationTTL, cfg.Tokens.ResetTTL)

	auth, err := service.NewAuthService(backend, hasher, issuer, cfg)
	if err != nil {
		return nil, err
	}

	sessions := middleware.NewSessionMiddleware(service.NewSessionAuthenticator(backend), cfg.Session.CookieName)
	authController := controller.NewAuthController(
		auth,
		service.NewRegistrationService(backend, hasher, issuer, mail, composer, cfg),
		service.NewVerificationService(backend, issuer, mail, composer, cfg),
		service.NewPasswordResetService(backend, hasher, issuer, mail, composer, cfg),
		sessions,
		controller.CookieSettings{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.IsProduction(),
		},
	)
	authController.RegisterRoutes(e.Group("/api/auth"))

	e.GET("/healthz", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := backend.Ping(pingCtx); err != nil {
			logrus.WithError(err).Warn("Health check failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return e, nil
}

func startHTTPServer(cfg *config.Config, e *echo.Echo) {
	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func startGRPCServer(cfg *config.Config, grpcServer *gogrpc.Server) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
	if err = grpcServer.Serve(lis); err != nil {
		logrus.WithError(err).Fatal("Failed to start gRPC server")
	}
}
