package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/config"
	transport "secaware-training-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the training API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		log.Printf("warning: auth.jwt_secret is empty; every token will be rejected")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	b.relay(ctx)

	training := app.NewTrainingService(b.items, b.sessions, b.results, b.notifier, cfg.Training.TrainingOptions())
	ranker := app.NewRanker(b.results, cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)
	router := transport.NewRouter(transport.Deps{
		Training:  training,
		Ranker:    ranker,
		Analytics: app.NewAnalytics(b.results, b.items, b.users),
		Hub:       b.hub,
		Auth:      transport.NewAuthenticator(cfg.Auth.JWTSecret),
	})

	// Read/write deadlines stay off unless configured; they would also cut hijacked websocket connections.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.TTLDuration(cfg.Server.ReadTimeout, 0),
		WriteTimeout:      config.TTLDuration(cfg.Server.WriteTimeout, 0),
	}

	go func() {
		log.Printf("starting training service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
