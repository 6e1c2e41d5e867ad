// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ert-inspection/internal/common/aws"
	"ert-inspection/internal/common/camunda"
	"ert-inspection/internal/common/config"
	"ert-inspection/internal/common/database"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/common/observability"
	"ert-inspection/internal/report"

	// Reporting Workers (2)
	er "ert-inspection/internal/workers/reporting/export-report"
	nr "ert-inspection/internal/workers/reporting/notify-result"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		tp, err := observability.NewTracerProvider("worker-manager", cfg.Tracing.JaegerEndpoint)
		if err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		} else {
			defer observability.ShutdownTracer(tp)
		}
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init Elasticsearch with retry (report archive) ---
	var archive report.Exporter
	if cfg.Report.Archive {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return esClient.Ping(pingCtx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		created, err := esClient.EnsureIndex(ctx, cfg.Report.ArchiveIndex, report.ArchiveMapping)
		if err != nil {
			zapLog.Fatal("report archive index unavailable", zap.Error(err))
		}
		if created {
			zapLog.Info("Created report archive index", zap.String("index", cfg.Report.ArchiveIndex))
		}
		archive = report.NewArchiveExporter(esClient.Client, cfg.Report.ArchiveIndex)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS Clients ---
	var (
		email  nr.EmailSender
		alerts nr.AlertPublisher
	)
	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		email = ses
	}
	if cfg.Notifications.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		alerts = sns
	}

	// --- Register Workers ---
	var workers []*camunda.CamundaWorker

	if wcfg := config.GetWorkerConfig(cfg, er.TaskType); wcfg.Enabled {
		ercfg := er.DefaultConfig()
		applyWorkerLimits(&ercfg.MaxJobsActive, &ercfg.Timeout, wcfg)
		if cfg.Report.OutputDir != "" {
			ercfg.OutputDir = cfg.Report.OutputDir
		}
		if cfg.Report.ArchiveIndex != "" {
			ercfg.ArchiveIndex = cfg.Report.ArchiveIndex
		}
		handler, err := er.NewHandler(ercfg, archive, log)
		if err != nil {
			zapLog.Fatal("failed to create export-inspection-report handler", zap.Error(err))
		}
		workers = append(workers, startWorker(zeebe, er.TaskType, wcfg, handler, log))
	}

	if wcfg := config.GetWorkerConfig(cfg, nr.TaskType); wcfg.Enabled {
		nrcfg := nr.DefaultConfig()
		applyWorkerLimits(&nrcfg.MaxJobsActive, &nrcfg.Timeout, wcfg)
		nrcfg.EmailEnabled = cfg.Notifications.Email.Enabled
		nrcfg.SMSEnabled = cfg.Notifications.SMS.Enabled
		nrcfg.FromEmail = cfg.Notifications.Email.FromEmail
		nrcfg.Recipients = cfg.Notifications.Email.Recipients
		nrcfg.TopicARN = cfg.Notifications.SMS.TopicARN
		nrcfg.AWSRegion = cfg.Notifications.AWS.Region
		handler, err := nr.NewHandler(nrcfg, email, alerts, log)
		if err != nil {
			zapLog.Fatal("failed to create notify-inspection-result handler", zap.Error(err))
		}
		workers = append(workers, startWorker(zeebe, nr.TaskType, wcfg, handler, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log logger.Logger) *camunda.CamundaWorker {
	w := camunda.NewWorker(
		client.GetClient(),
		taskType,
		wcfg.MaxJobsActive,
		config.GetDuration(wcfg.Timeout),
		handler,
		log,
	)
	w.Start()
	return w
}

// applyWorkerLimits overrides a worker's defaults with the positive values
// from its workers entry.
func applyWorkerLimits(maxJobs *int, timeout *time.Duration, wcfg config.WorkerConfig) {
	if wcfg.MaxJobsActive > 0 {
		*maxJobs = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		*timeout = config.GetDuration(wcfg.Timeout)
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
