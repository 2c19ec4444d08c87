package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/admin"
	"github.com/iyhunko/storefront-admin/internal/cache"
	"github.com/iyhunko/storefront-admin/internal/catalog"
	"github.com/iyhunko/storefront-admin/internal/config"
	httpAPI "github.com/iyhunko/storefront-admin/internal/http"
	"github.com/iyhunko/storefront-admin/internal/http/controller"
	"github.com/iyhunko/storefront-admin/internal/http/middleware"
	"github.com/iyhunko/storefront-admin/internal/logger"
	"github.com/iyhunko/storefront-admin/internal/metrics"
	reposql "github.com/iyhunko/storefront-admin/internal/repository/sql"
	"github.com/iyhunko/storefront-admin/internal/service"
	"github.com/iyhunko/storefront-admin/internal/session"
	sqspkg "github.com/iyhunko/storefront-admin/internal/sqs"
	"github.com/iyhunko/storefront-admin/internal/storeapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := storeapi.NewClient(conf.StoreAPI.BaseURL, conf.StoreAPI.Timeout)
	sess := session.New(client)

	var (
		opts     []admin.Option
		auditCtr *controller.AuditController
		worker   *service.OutboxWorker
		db       *sql.DB
	)
	if conf.Audit.Enabled {
		db, err = reposql.StartDB(ctx, conf.Database)
		handleErr("starting database", err)

		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
		handleErr("creating SQS client", err)

		events := reposql.NewEventRepository(db)
		auditLog := service.NewAuditLog(events)
		opts = append(opts, admin.WithAuditor(auditLog))
		auditCtr = controller.NewAuditController(auditLog)

		worker = service.NewOutboxWorker(events, sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL), conf.Audit.OutboxInterval)
		go worker.Start(ctx)
	}

	adminCtr := admin.NewController(client, sess, cache.New(), opts...)
	defer adminCtr.Close()

	router := httpAPI.InitRouter(gin.New(), middleware.New(sess), httpAPI.Controllers{
		General:  controller.New(sess, adminCtr, catalog.New(client)),
		Products: controller.NewProductController(adminCtr),
		Forms:    controller.NewFormController(adminCtr),
		Audit:    auditCtr,
	})

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Admin console starting", slog.String("port", conf.HTTPServer.Port), slog.Bool("audit", conf.Audit.Enabled))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to stop HTTP server", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to stop metrics server", slog.Any("err", err))
	}
	if worker != nil {
		worker.Stop()
	}
	cancel()
	if db != nil {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", slog.Any("err", err))
		}
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("Fatal error", slog.String("while", msg), slog.Any("err", err))
		os.Exit(1)
	}
}
