package notifications

import "github.com/wildwatch/wildlife-scan-bot/internal/models"

// Notifier defines the contract for scan result notifications
type Notifier interface {
	SendScanSummary(summary *models.ScanSummary) error
}
