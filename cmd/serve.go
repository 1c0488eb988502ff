package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/dotion/internal/appcontrol"
	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/chat"
	"github.com/teemow/dotion/internal/config"
	"github.com/teemow/dotion/internal/google"
	"github.com/teemow/dotion/internal/instrumentation"
	"github.com/teemow/dotion/internal/logging"
	"github.com/teemow/dotion/internal/server"
)

func newServeCmd() *cobra.Command {
	var listenAddr string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant API server",
		Long: `Start the dotion HTTP server.

The server exposes the chat stream endpoint, the calendar API, the Google
OAuth flow, and health probes. Prometheus metrics are served on a separate
port. Configuration comes from the environment (OPENAI_API_KEY,
GOOGLE_CALENDAR_ID, GOOGLE_CLIENT_ID, ...); flags override the listen
addresses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "API listen address (default from DOTION_LISTEN_ADDR)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-listen", "", "metrics listen address (default from DOTION_METRICS_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	metrics := provider.Metrics()

	openaiConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	openaiClient := openai.NewClientWithConfig(openaiConfig)

	location := cfg.Location()
	prompt := chat.NewPromptBuilder(cfg.OpenAIModel, cfg.GoogleTimeZone, location,
		cfg.ContextTokens, cfg.ReserveTokens, logger)

	srvConfig := server.Config{
		Addr:     cfg.ListenAddr,
		Sessions: &server.SessionManager{Secure: cfg.SecureCookies},
		Calendars: func(ctx context.Context, accessToken string) (server.CalendarService, error) {
			return calendar.NewClient(ctx, calendar.ClientConfig{
				AccessToken: accessToken,
				CalendarID:  cfg.GoogleCalendarID,
				TimeZone:    cfg.GoogleTimeZone,
				Logger:      logger,
				Metrics:     metrics,
			})
		},
		Opener:     chat.OpenAIOpener{Client: openaiClient},
		Model:      cfg.OpenAIModel,
		Prompt:     prompt,
		Apps:       appcontrol.New(cfg.AppControlEnabled, logger),
		AppControl: cfg.AppControlEnabled,
		TimeZone:   cfg.GoogleTimeZone,
		Location:   location,
		Logger:     logger,
		Metrics:    metrics,
	}
	if cfg.OAuthConfigured() {
		srvConfig.OAuth = google.OAuthConfig(google.Credentials{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
		})
	} else {
		logger.Warn("Google OAuth is not configured; calendar stays signed out")
	}

	apiServer := server.New(srvConfig)

	var metricsServer *server.MetricsServer
	if provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(apiServer.Start)
	if metricsServer != nil {
		group.Go(metricsServer.Start)
	}
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := apiServer.Shutdown(shutdownCtx)
		if metricsServer != nil {
			if merr := metricsServer.Shutdown(shutdownCtx); err == nil {
				err = merr
			}
		}
		if perr := provider.Shutdown(shutdownCtx); err == nil {
			err = perr
		}
		return err
	})

	logger.Info("dotion server started",
		logging.Operation("serve"),
	)
	return group.Wait()
}
