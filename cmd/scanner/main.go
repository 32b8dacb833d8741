package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/config"
	"github.com/wildwatch/wildlife-scan-bot/internal/gemini"
	"github.com/wildwatch/wildlife-scan-bot/internal/matcher"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
	"github.com/wildwatch/wildlife-scan-bot/internal/notifications"
	"github.com/wildwatch/wildlife-scan-bot/internal/scan"
	"github.com/wildwatch/wildlife-scan-bot/internal/scheduler"
	"github.com/wildwatch/wildlife-scan-bot/internal/storage"
	"github.com/wildwatch/wildlife-scan-bot/internal/supervisor"
	"github.com/wildwatch/wildlife-scan-bot/internal/youtube"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Wildlife Scan Bot")

	engine := scan.NewEngine(
		youtube.NewClient(cfg.YouTubeAPIKey),
		gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel),
	)

	mode := supervisor.ProgressPercent
	if cfg.ProgressReportingMode == "lines" {
		mode = supervisor.ProgressLines
	}

	sup := supervisor.New(engine, cfg.ScanTimeout, mode)

	// Archiving is optional; without a storage account results only
	// live until the job is cleaned up.
	if cfg.StorageAccount != "" {
		archive, err := storage.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		sup.SetArchive(archive)
	}

	notificationService := notifications.NewService(cfg)

	if len(cfg.WatchKeywords) > 0 {
		schedulerService := scheduler.NewService(cfg, sup, notificationService)
		if err := schedulerService.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer schedulerService.Stop()
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/scan", startScanHandler(cfg, sup)).Methods("POST")
	router.HandleFunc("/scan/{id}/progress", progressHandler(sup)).Methods("GET")
	router.HandleFunc("/scan/{id}/results", resultsHandler(sup)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

type scanRequest struct {
	Keyword             string `json:"keyword"`
	MaxVideos           int    `json:"max_videos"`
	MaxCommentsPerVideo int    `json:"max_comments_per_video"`
	Language            string `json:"language"`
	Keywords            string `json:"keywords"`
	AnalyzeThumbnails   bool   `json:"analyze_thumbnails"`
}

func startScanHandler(cfg *config.Config, sup *supervisor.Supervisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		spec := models.ScanJobSpec{
			Keyword:             req.Keyword,
			MaxVideos:           req.MaxVideos,
			MaxCommentsPerVideo: req.MaxCommentsPerVideo,
			Language:            req.Language,
			Keywords:            matcher.ParseKeywordList(req.Keywords),
			AnalyzeThumbnails:   req.AnalyzeThumbnails,
			ClassifierDelay:     cfg.ClassifierDelay,
		}
		if spec.MaxVideos == 0 {
			spec.MaxVideos = cfg.DefaultMaxVideos
		}
		if spec.MaxCommentsPerVideo == 0 {
			spec.MaxCommentsPerVideo = cfg.DefaultMaxComments
		}
		if spec.Language == "" {
			spec.Language = cfg.DefaultLanguage
		}

		job, err := sup.Start(spec)
		if err != nil {
			var validationErr *models.ValidationError
			if errors.As(err, &validationErr) {
				writeJSONError(w, http.StatusBadRequest, validationErr.Error())
				return
			}
			logrus.Errorf("Failed to start scan: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to start scan")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": job.ID})
	}
}

func progressHandler(sup *supervisor.Supervisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := sup.Get(mux.Vars(r)["id"])
		if !ok {
			writeJSONError(w, http.StatusNotFound, "unknown job")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if job.Progress.Mode() == supervisor.ProgressLines {
			json.NewEncoder(w).Encode(map[string]any{
				"lines":    job.Progress.Lines(),
				"complete": job.Progress.Complete(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"percent":  job.Progress.Percent(),
			"complete": job.Progress.Complete(),
		})
	}
}

func resultsHandler(sup *supervisor.Supervisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := sup.Get(mux.Vars(r)["id"])
		if !ok {
			writeJSONError(w, http.StatusNotFound, "unknown job")
			return
		}

		select {
		case <-job.Done():
		default:
			writeJSONError(w, http.StatusConflict, "scan still running")
			return
		}

		if err := job.Err(); err != nil {
			// Timed-out scans still serve whatever was written before
			// the deadline.
			if !errors.Is(err, supervisor.ErrScanTimedOut) || len(job.Artifacts()) == 0 {
				var failed *supervisor.ScanFailedError
				if errors.As(err, &failed) {
					writeJSONError(w, http.StatusInternalServerError, failed.Tail)
					return
				}
				writeJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		path, name, err := sup.Package(job)
		if err != nil {
			logrus.Errorf("Failed to package results for job %s: %v", job.ID, err)
			writeJSONError(w, http.StatusInternalServerError, "failed to package results")
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		http.ServeFile(w, r, path)
		sup.Cleanup(job)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
