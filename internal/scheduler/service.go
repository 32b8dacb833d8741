package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/config"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
	"github.com/wildwatch/wildlife-scan-bot/internal/notifications"
	"github.com/wildwatch/wildlife-scan-bot/internal/supervisor"
)

// Service runs recurring watch scans for the configured keywords.
type Service struct {
	config     *config.Config
	supervisor *supervisor.Supervisor
	notifier   notifications.Notifier
	cron       *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, sup *supervisor.Supervisor, notifier notifications.Notifier) *Service {
	return &Service{
		config:     cfg,
		supervisor: sup,
		notifier:   notifier,
		cron:       cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled watch scans
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.WatchSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * MON"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled watch scans")
		s.runWatchScans()
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule for %d watch keyword(s)",
		s.config.WatchSchedule, len(s.config.WatchKeywords))
	return nil
}

// runWatchScans scans each watch keyword in turn and reports the outcome.
// Keywords run sequentially to stay inside the YouTube API quota.
func (s *Service) runWatchScans() {
	for _, keyword := range s.config.WatchKeywords {
		spec := models.ScanJobSpec{
			Keyword:             keyword,
			MaxVideos:           s.config.DefaultMaxVideos,
			MaxCommentsPerVideo: s.config.DefaultMaxComments,
			Language:            s.config.DefaultLanguage,
			AnalyzeThumbnails:   s.config.GeminiAPIKey != "",
			ClassifierDelay:     s.config.ClassifierDelay,
		}

		job, err := s.supervisor.Start(spec)
		if err != nil {
			logrus.Errorf("Failed to start watch scan for %q: %v", keyword, err)
			continue
		}

		<-job.Done()
		if err := job.Err(); err != nil {
			logrus.Errorf("Watch scan for %q failed: %v", keyword, err)
		}

		if s.notifier != nil {
			summary := job.Summary()
			if err := s.notifier.SendScanSummary(&summary); err != nil {
				logrus.Errorf("Failed to send summary for %q: %v", keyword, err)
			}
		}

		s.supervisor.Cleanup(job)
	}
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
