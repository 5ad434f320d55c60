package entrypoint

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

	"github.com/mrlokans/foxtales/internal/config"
	http_controllers "github.com/mrlokans/foxtales/internal/http"
	"github.com/mrlokans/foxtales/internal/scheduler"
	"github.com/mrlokans/foxtales/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// stop background work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Foxtales v%s", version)
	log.Printf("Data directory: %s", cfg.Storage.DataDir)
	log.Printf("Books server: %s", cfg.Remote.URL)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize library: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		if cfg.Tasks.Workers > 0 {
			taskCfg.Workers = cfg.Tasks.Workers
		}
		if cfg.Tasks.ReleaseAfter > 0 {
			taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		}
		if cfg.Tasks.CleanupInterval > 0 {
			taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval
		}

		taskClient, err = tasks.NewClient(cfg.Storage.DataDir, taskCfg)
		if err != nil {
			log.Printf("WARNING: Failed to initialize task queue, downloads run inline: %v", err)
			taskClient = nil
		} else {
			taskClient.Register(tasks.NewDownloadBookQueue(app.Downloader))
			go taskClient.Start(bgCtx)
		}
	} else {
		log.Printf("Task queue disabled, downloads run inline")
	}

	var sweeper *scheduler.OrphanSweeper
	if cfg.OrphanSweep.Enabled {
		sweeper = scheduler.NewOrphanSweeper(app.Store, app.Books, cfg.OrphanSweep.Schedule)
		if err := sweeper.Start(bgCtx); err != nil {
			log.Printf("WARNING: Orphan sweep disabled: %v", err)
			sweeper = nil
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Store:      app.Store,
		Books:      app.Books,
		Tracker:    app.Tracker,
		Downloader: app.Downloader,
		Engine:     app.Engine,
		Queue:      app.Queue,
		Tokens:     app.Tokens,
		TaskClient: taskClient,
		Version:    version,
	})

	onShutdown := func(ctx context.Context) {
		if sweeper != nil {
			sweeper.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task queue: %v", err)
			}
		}
		bgCancel()
	}

	Serve(router, cfg, onShutdown)
}
