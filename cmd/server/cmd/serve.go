package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/wemeetoffline/server/internal/api"
	"github.com/wemeetoffline/server/internal/api/handlers"
	"github.com/wemeetoffline/server/internal/audit"
	"github.com/wemeetoffline/server/internal/auth"
	"github.com/wemeetoffline/server/internal/config"
	"github.com/wemeetoffline/server/internal/domain/events"
	"github.com/wemeetoffline/server/internal/domain/users"
	"github.com/wemeetoffline/server/internal/email"
	"github.com/wemeetoffline/server/internal/identity"
	"github.com/wemeetoffline/server/internal/metrics"
	"github.com/wemeetoffline/server/internal/sms"
	storage "github.com/wemeetoffline/server/internal/storage/mongo"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and begin accepting API requests.

Configuration comes from environment variables; a .env file in the working
directory is loaded when present. The server shuts down gracefully on
SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	// missing .env is fine; env vars may come from the environment proper
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("starting we-meet-offline server")

	metrics.Init(Version, GitCommit, BuildDate)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := storage.Connect(connectCtx, cfg.Database.URI)
	connectCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error().Err(err).Msg("mongo disconnect error")
		}
	}()

	db := client.Database(cfg.Database.Database)

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = storage.EnsureIndexes(indexCtx, db)
	indexCancel()
	if err != nil {
		return fmt.Errorf("index bootstrap failed: %w", err)
	}

	codes, err := auth.NewCodeCipher(cfg.Auth.EncryptionKey, cfg.Auth.EncryptionIV)
	if err != nil {
		return fmt.Errorf("auth code cipher: %w", err)
	}
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Server.BaseURL)

	usersRepo := storage.NewUsersRepository(db)
	eventsRepo := storage.NewEventsRepository(db)
	logsRepo := storage.NewLogsRepository(db)

	eventService := events.NewService(eventsRepo)
	userService := users.NewService(users.ServiceDeps{
		Repo:       usersRepo,
		EventRepo:  eventsRepo,
		Passwords:  auth.NewHasher(cfg.Auth.BcryptCost),
		EmailHash:  auth.NewEmailHasher(cfg.Auth.EmailHashSecret),
		Codes:      codes,
		Tokens:     tokens,
		Identities: identity.NewGoogleVerifier(cfg.Google.ClientID),
		Mailer:     email.NewService(cfg.Email, cfg.Server.FrontendURL, logger),
		SMS:        sms.NewTwilioSender(cfg.SMS, logger),
		CodeTTL:    cfg.Auth.AuthCodeTTL,
		Logger:     logger,
	})
	recorder := audit.NewRecorder(logsRepo, logger)

	router := api.NewRouter(api.RouterDeps{
		Config:    cfg,
		Logger:    logger,
		Tokens:    tokens,
		Events:    handlers.NewEventsHandler(eventService, cfg.Environment),
		Users:     handlers.NewUsersHandler(userService, cfg.Environment),
		Logs:      handlers.NewLogsHandler(recorder, cfg.Environment),
		Health:    handlers.NewHealthHandler(pinger{client}),
		Phones:    userService,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

type pinger struct {
	client *mongodriver.Client
}

func (p pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}
