package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"shorturl/cmd"
	"shorturl/internal/api"
	"shorturl/internal/config"
	"shorturl/internal/geoip"
	"shorturl/internal/models"
	"shorturl/internal/monitor"
	"shorturl/internal/repository"
	"shorturl/internal/services"
	"shorturl/internal/workers"
)

// RunServerCmd launches the HTTP server plus the background processes:
// analytics workers and the cleanup monitor.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Runs the URL shortening API server and background processes.",
	Long: `This command initializes the store, configures the API routes,
starts the asynchronous click workers and the cleanup monitor,
then launches the HTTP server.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		clock := models.RealClock{}

		store, err := repository.NewStore(cfg, clock)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer store.Close()
		log.Printf("Store initialized (driver=%s).", cfg.Storage.Driver)

		geo := geoip.NewHTTPResolver(cfg.GeoIP.BaseURL, cfg.GeoIPTimeout())

		svc := services.NewShortURLService(store, geo, clock,
			cfg.ShortURL.CodeLength, cfg.ShortURL.MaxCodeLength, cfg.DefaultValidity())
		log.Println("Business services initialized.")

		// Click events channel and the worker pool draining it.
		clickEvents := make(chan models.ClickEvent, cfg.Analytics.BufferSize)
		svc.AttachClickEvents(clickEvents)
		forwarder := workers.NewForwarder(cfg.Analytics.Endpoint, cfg.AnalyticsTimeout())
		workers.StartClickWorkers(cfg.Analytics.WorkerCount, clickEvents, forwarder)
		log.Printf("Click events channel initialized with a buffer of %d. %d worker(s) started.",
			cfg.Analytics.BufferSize, cfg.Analytics.WorkerCount)

		cleanupMonitor := monitor.NewCleanupMonitor(svc, cfg.CleanupInterval(), clock)
		cleanupMonitor.Start()

		router := gin.Default()
		router.Use(api.MetricsMiddleware())
		api.SetupRoutes(router, svc, cfg.Server.BaseURL)
		log.Println("API routes configured.")

		serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    serverAddr,
			Handler: router,
		}

		go func() {
			log.Printf("Starting server on %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// Block until an OS shutdown signal arrives.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received. Stopping server...")

		cleanupMonitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}

		log.Println("Server stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
