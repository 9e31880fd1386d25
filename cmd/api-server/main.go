package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"eventhub/internal/crawler"
	"eventhub/internal/feed"
	"eventhub/internal/geo"
	"eventhub/internal/ingest"
	"eventhub/internal/offers"
	"eventhub/internal/pipeline"
	"eventhub/internal/runner"
	"eventhub/pkg/database"
	"eventhub/pkg/utils"
)

func main() {
	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()
	geoCfg := utils.LoadGeoConfig()
	runCfg := utils.LoadRunnerConfig()

	hub := feed.NewHub()
	reports := pipeline.NewReportStore(srvCfg.ReportDir)
	engine := ingest.NewEngine(db)
	resolver := geo.New(geo.Config{
		Enabled:       geoCfg.Enabled,
		Provider:      geoCfg.Provider,
		AllowFallback: geoCfg.AllowFallback,
		NominatimURL:  geoCfg.NominatimURL,
		PhotonURL:     geoCfg.PhotonURL,
	})
	orch := pipeline.New(crawler.BySlug(nil), engine, resolver, reports, hub)

	pool := runner.New(orch, runCfg, nil)
	pool.Start()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", feed.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": hub.Count(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": hub.Count(),
		})
	})

	// Scheduling surface + report access
	runnerHandler := runner.NewHandler(pool, reports)
	runnerHandler.RegisterRoutes(router)

	// Offer browsing (public)
	offerRepo := offers.NewRepo(db)
	offerHandler := offers.NewHandler(offerRepo)
	offerHandler.RegisterRoutes(router.Group("/offers"))

	// Manual-entry boundary (also used by the OCR submission flow)
	ingestHandler := ingest.NewHandler(engine)
	ingestHandler.RegisterRoutes(router.Group("/offers"))

	httpSrv := &http.Server{
		Addr:    srvCfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", srvCfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	pool.Stop()
	log.Println("stopped")
}
