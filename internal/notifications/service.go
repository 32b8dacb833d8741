package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/config"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
	"gopkg.in/gomail.v2"
)

// Service sends scan summaries via configured notification channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendScanSummary fans a completed scan's summary out to every
// configured channel and aggregates delivery failures.
func (s *Service) SendScanSummary(summary *models.ScanSummary) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(summary); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent scan summary to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(summary); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent scan summary via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(summary *models.ScanSummary) error {
	message := s.buildTeamsMessage(summary)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(summary *models.ScanSummary) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Wildlife Scan Report - %q", summary.Keyword),
		Text:    statusLine(summary),
	}

	facts := []TeamsFact{
		{Name: "Keyword", Value: summary.Keyword},
		{Name: "Videos Scanned", Value: fmt.Sprintf("%d", summary.VideosScanned)},
		{Name: "Comment Hits", Value: fmt.Sprintf("%d", summary.CommentHits)},
		{Name: "Thumbnail Hits", Value: fmt.Sprintf("%d", summary.ThumbnailHits)},
		{Name: "Started", Value: summary.StartedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if summary.ArtifactName != "" {
		facts = append(facts, TeamsFact{Name: "Artifact", Value: summary.ArtifactName})
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if summary.FailureMessage != "" {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Failure",
			ActivityText:  summary.FailureMessage,
			Markdown:      false,
		})
	}

	return message
}

func statusLine(summary *models.ScanSummary) string {
	switch {
	case summary.TimedOut:
		return fmt.Sprintf("Scan timed out after %d videos; partial results were kept", summary.VideosScanned)
	case summary.FailureMessage != "":
		return "Scan failed; see diagnostics below"
	default:
		return fmt.Sprintf("Found %d comment hit(s) and %d thumbnail hit(s) across %d video(s)",
			summary.CommentHits, summary.ThumbnailHits, summary.VideosScanned)
	}
}

func (s *Service) sendEmail(summary *models.ScanSummary) error {
	subject := fmt.Sprintf("Wildlife Scan Report - %q (%d hits)",
		summary.Keyword, summary.CommentHits+summary.ThumbnailHits)

	htmlBody, err := s.buildEmailHTML(summary)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(summary)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(summary *models.ScanSummary) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Wildlife Scan Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2e7d32; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .failure { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; white-space: pre-wrap; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Wildlife Scan Report</h1>
        <p>Scan for {{printf "%q" .Keyword}} started {{.StartedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Videos Scanned:</strong> {{.VideosScanned}}</p>
        <p><strong>Comment Hits:</strong> {{.CommentHits}}</p>
        <p><strong>Thumbnail Hits:</strong> {{.ThumbnailHits}}</p>
        {{if .TimedOut}}<p><strong>Note:</strong> the scan timed out; results are partial.</p>{{end}}
        {{if .ArtifactName}}<p><strong>Artifact:</strong> {{.ArtifactName}}</p>{{end}}
    </div>

    {{if .FailureMessage}}
    <h2>Failure</h2>
    <div class="failure">{{.FailureMessage}}</div>
    {{end}}
</body>
</html>`

	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, summary); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(summary *models.ScanSummary) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Wildlife Scan Report - %q\n", summary.Keyword))
	text.WriteString(fmt.Sprintf("Started: %s\n\n", summary.StartedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Videos Scanned: %d\n", summary.VideosScanned))
	text.WriteString(fmt.Sprintf("Comment Hits: %d\n", summary.CommentHits))
	text.WriteString(fmt.Sprintf("Thumbnail Hits: %d\n", summary.ThumbnailHits))
	if summary.TimedOut {
		text.WriteString("Note: the scan timed out; results are partial.\n")
	}
	if summary.ArtifactName != "" {
		text.WriteString(fmt.Sprintf("Artifact: %s\n", summary.ArtifactName))
	}

	if summary.FailureMessage != "" {
		text.WriteString("\nFAILURE\n")
		text.WriteString("=======\n")
		text.WriteString(summary.FailureMessage)
		text.WriteString("\n")
	}

	text.WriteString("\n---\nThis report was generated automatically by the wildlife scan bot.\n")

	return text.String()
}
