package scan

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/gemini"
	"github.com/wildwatch/wildlife-scan-bot/internal/matcher"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
)

// VideoAPI is the slice of the YouTube client the engine needs.
type VideoAPI interface {
	SearchVideos(ctx context.Context, keyword string, limit int) ([]models.VideoRecord, error)
	FetchComments(ctx context.Context, videoID string, limit int) (comments []models.CommentRecord, disabled bool, err error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Classifier is the slice of the Gemini client the engine needs.
type Classifier interface {
	Classify(ctx context.Context, image []byte, mimeType string) (string, error)
	IsEnabled() bool
}

// Result accumulates everything one scan produced.
type Result struct {
	Videos       []models.VideoRecord
	Hits         []models.SignalHit
	VideoCSVPath string
	HitsCSVPath  string
}

// CommentHits counts hits that came from comment text.
func (r *Result) CommentHits() int {
	return r.countHits(models.SourceComment)
}

// ThumbnailHits counts hits that came from thumbnail classification.
func (r *Result) ThumbnailHits() int {
	return r.countHits(models.SourceThumbnail)
}

func (r *Result) countHits(kind models.SourceKind) int {
	n := 0
	for _, h := range r.Hits {
		if h.SourceKind == kind {
			n++
		}
	}
	return n
}

// Engine drives one end-to-end scan: enumerate videos, fetch comments
// and optionally thumbnails, run the signal matcher and classifier, and
// stream CSV rows plus progress markers as each video completes.
type Engine struct {
	videos     VideoAPI
	classifier Classifier
}

// NewEngine creates a scan engine. classifier may be nil when thumbnail
// analysis is never requested.
func NewEngine(videos VideoAPI, classifier Classifier) *Engine {
	return &Engine{videos: videos, classifier: classifier}
}

// Run executes the scan described by spec, writing CSV artifacts into
// outDir and progress text to out. Rows are flushed per video so partial
// output survives a forced cancellation. A single video's failure is
// logged and skipped; only spec validation and the top-level video search
// can fail the whole scan.
func (e *Engine) Run(ctx context.Context, spec models.ScanJobSpec, outDir string, out io.Writer) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	phrases := spec.Keywords
	if len(phrases) == 0 {
		phrases = matcher.KeywordsForLanguage(spec.Language)
	}

	fmt.Fprintf(out, "Searching for %q (up to %d videos)\n", spec.Keyword, spec.MaxVideos)

	videos, err := e.videos.SearchVideos(ctx, spec.Keyword, spec.MaxVideos)
	if err != nil {
		return nil, fmt.Errorf("video search failed: %w", err)
	}

	writers, err := newResultWriters(outDir)
	if err != nil {
		return nil, err
	}
	defer writers.close()

	result := &Result{
		VideoCSVPath: writers.videoPath,
		HitsCSVPath:  writers.hitsPath,
	}

	analyze := spec.AnalyzeThumbnails && e.classifier != nil && e.classifier.IsEnabled()
	total := len(videos)
	fmt.Fprintf(out, "Found %d videos. Thumbnail analysis: %s\n", total, onOff(analyze))

	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if analyze && video.ThumbnailURL != "" {
			e.classifyThumbnail(ctx, &video, result, out)
			if err := sleepCtx(ctx, spec.ClassifierDelay); err != nil {
				return result, err
			}
		}

		e.scanComments(ctx, video, phrases, spec.MaxCommentsPerVideo, result, writers, out)

		result.Videos = append(result.Videos, video)
		if err := writers.writeVideo(video); err != nil {
			return result, fmt.Errorf("failed to write video row: %w", err)
		}
		writers.flush()

		fmt.Fprintf(out, "[%d/%d] %s — %s\n", i+1, total, video.Title, video.URL())
	}

	fmt.Fprintf(out, "Done. %d hit(s) across %d videos\n", len(result.Hits), total)
	return result, nil
}

// classifyThumbnail fetches the video's thumbnail and records the
// classifier verdict on the video record. Failures are logged and leave
// the video without a verdict; they never abort the scan.
func (e *Engine) classifyThumbnail(ctx context.Context, video *models.VideoRecord, result *Result, out io.Writer) {
	img, err := e.videos.FetchImage(ctx, video.ThumbnailURL)
	if err != nil {
		logrus.Errorf("Failed to fetch thumbnail for video %s: %v", video.VideoID, err)
		fmt.Fprintf(out, "  ! thumbnail fetch error for %s: %v\n", video.VideoID, err)
		return
	}

	raw, err := e.classifier.Classify(ctx, img, gemini.GuessMime(video.ThumbnailURL))
	if err != nil {
		logrus.Errorf("Classifier error for video %s: %v", video.VideoID, err)
		fmt.Fprintf(out, "  ! classifier error for %s: %v\n", video.VideoID, err)
		return
	}

	video.GeminiReply = raw
	video.Hit = gemini.NormalizeVerdict(raw)
	if video.Hit {
		result.Hits = append(result.Hits, models.SignalHit{
			SourceKind:  models.SourceThumbnail,
			VideoID:     video.VideoID,
			VideoTitle:  video.Title,
			VerdictText: raw,
			IsPositive:  true,
		})
	}
}

// scanComments fetches up to limit comment records for one video and runs
// the signal matcher over each. Disabled comments end the video's
// collection quietly; fetch errors are logged and skipped.
func (e *Engine) scanComments(ctx context.Context, video models.VideoRecord, phrases []string, limit int, result *Result, writers *resultWriters, out io.Writer) {
	comments, disabled, err := e.videos.FetchComments(ctx, video.VideoID, limit)
	if disabled {
		logrus.Infof("Comments disabled for video %s", video.VideoID)
		fmt.Fprintf(out, "  - comments disabled for %s\n", video.VideoID)
		return
	}
	if err != nil {
		logrus.Errorf("Failed to fetch comments for video %s: %v", video.VideoID, err)
		fmt.Fprintf(out, "  ! comment fetch error for %s: %v\n", video.VideoID, err)
		return
	}

	for _, comment := range comments {
		match := matcher.Scan(comment.Text, phrases)
		if !match.Matched() {
			continue
		}

		hit := models.SignalHit{
			SourceKind:   models.SourceComment,
			VideoID:      video.VideoID,
			VideoTitle:   video.Title,
			CommentID:    comment.CommentID,
			Author:       comment.Author,
			Text:         comment.Text,
			PhoneNumbers: match.PhoneNumbers,
			Keywords:     match.Keywords,
		}
		result.Hits = append(result.Hits, hit)
		if err := writers.writeCommentHit(hit); err != nil {
			logrus.Errorf("Failed to write hit row: %v", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}
