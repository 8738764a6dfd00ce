package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	httpHdlr "mipgate/handler/http"
	"mipgate/src/core/job"
	"mipgate/src/infrastructure/agent"
	"mipgate/src/infrastructure/integrations/masumi"
	"mipgate/src/infrastructure/log"
	"mipgate/src/storage/weaviate"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MIP-003 gateway server",
	Long:  `The serve command starts an HTTP server exposing the MIP-003 job lifecycle endpoints.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	// Initialize masumi payment client
	payments := masumi.NewClient(
		viper.GetString("payment.base_url"),
		viper.GetString("payment.api_key"),
		&http.Client{Timeout: 30 * time.Second},
	)

	// Initialize job repository and service
	repo := job.NewInMemoryRepository()
	svc := job.NewService(
		repo,
		payments,
		viper.GetString("payment.agent_identifier"),
		viper.GetString("payment.network"),
	)

	// Initialize in-process task queue for background completion
	wmLogger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		log.Error(err, "Failed to create task router")
		return
	}
	router.AddMiddleware(middleware.Recoverer)

	runner := agent.NewRunner(svc, repo, pubsub, viper.GetDuration("agent.task_delay"), wmLogger)
	router.AddNoPublisherHandler(
		"agent_runner",
		agent.TasksTopic,
		pubsub,
		runner.Handle,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := router.Run(ctx); err != nil {
			log.Error(err, "Task router stopped")
		}
	}()

	// Initialize Weaviate client
	wc := weaviateClient.New(weaviateClient.Config{
		Host:   viper.GetString("weaviate.url"),
		Scheme: viper.GetString("weaviate.scheme"),
	})
	wsdk := weaviate.NewSDK(wc)
	if err := wsdk.EnsureArtifactSchema(ctx); err != nil {
		// The gateway serves without the vector store; /health reports it.
		log.Error(err, "Failed to ensure artifact schema")
	}

	// Initialize HTTP handler
	handler := httpHdlr.NewGatewayHandler(svc, repo, runner, wsdk, httpHdlr.RateLimitConfig{
		PerMinute: viper.GetInt("ratelimit.start_job_per_minute"),
		Burst:     viper.GetInt("ratelimit.start_job_burst"),
	})

	// Setup gin router
	r := gin.Default()
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	// Stop the task router after the HTTP server drains
	cancel()
	<-router.Running()

	log.Info("Server exited")
}
