package scan

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wildwatch/wildlife-scan-bot/internal/models"
)

// Artifact file names are deterministic so callers can retrieve them by name.
const (
	VideoCSVName = "scan_results.csv"
	HitsCSVName  = "comment_hits.csv"
	LogFileName  = "scan_log.txt"
)

// Column sets are order-significant; downstream consumers key on them.
var (
	videoCSVHeader = []string{
		"video_id", "video_title", "channel_title", "published_at",
		"video_url", "thumbnail_url", "gemini_reply", "hit",
	}
	hitsCSVHeader = []string{
		"video_id", "video_title", "comment_id", "author", "text",
		"matched_words", "phone_numbers",
	}
)

// resultWriters streams video and comment-hit rows to their CSV files as
// the scan progresses, so a killed scan still leaves usable partial output.
type resultWriters struct {
	videoPath string
	hitsPath  string
	videoFile *os.File
	hitsFile  *os.File
	video     *csv.Writer
	hits      *csv.Writer
}

func newResultWriters(dir string) (*resultWriters, error) {
	videoPath := filepath.Join(dir, VideoCSVName)
	videoFile, err := os.Create(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", VideoCSVName, err)
	}

	hitsPath := filepath.Join(dir, HitsCSVName)
	hitsFile, err := os.Create(hitsPath)
	if err != nil {
		videoFile.Close()
		return nil, fmt.Errorf("failed to create %s: %w", HitsCSVName, err)
	}

	w := &resultWriters{
		videoPath: videoPath,
		hitsPath:  hitsPath,
		videoFile: videoFile,
		hitsFile:  hitsFile,
		video:     csv.NewWriter(videoFile),
		hits:      csv.NewWriter(hitsFile),
	}

	if err := w.video.Write(videoCSVHeader); err != nil {
		w.close()
		return nil, err
	}
	if err := w.hits.Write(hitsCSVHeader); err != nil {
		w.close()
		return nil, err
	}
	w.flush()

	return w, nil
}

func (w *resultWriters) writeVideo(v models.VideoRecord) error {
	return w.video.Write(VideoCSVRow(v))
}

func (w *resultWriters) writeCommentHit(h models.SignalHit) error {
	return w.hits.Write([]string{
		h.VideoID,
		h.VideoTitle,
		h.CommentID,
		h.Author,
		h.Text,
		strings.Join(h.Keywords, ", "),
		strings.Join(h.PhoneNumbers, ", "),
	})
}

func (w *resultWriters) flush() {
	w.video.Flush()
	w.hits.Flush()
}

func (w *resultWriters) close() error {
	w.flush()
	err := w.videoFile.Close()
	if err2 := w.hitsFile.Close(); err == nil {
		err = err2
	}
	return err
}

// VideoCSVRow serializes one video record in the fixed column order.
func VideoCSVRow(v models.VideoRecord) []string {
	publishedAt := ""
	if !v.PublishedAt.IsZero() {
		publishedAt = v.PublishedAt.UTC().Format(time.RFC3339)
	}

	hit := "no"
	if v.Hit {
		hit = "yes"
	}

	return []string{
		v.VideoID,
		v.Title,
		v.ChannelTitle,
		publishedAt,
		v.URL(),
		v.ThumbnailURL,
		v.GeminiReply,
		hit,
	}
}

// ParseVideoCSVRow is the inverse of VideoCSVRow.
func ParseVideoCSVRow(row []string) (models.VideoRecord, error) {
	if len(row) != len(videoCSVHeader) {
		return models.VideoRecord{}, fmt.Errorf("expected %d columns, got %d", len(videoCSVHeader), len(row))
	}

	var publishedAt time.Time
	if row[3] != "" {
		var err error
		publishedAt, err = time.Parse(time.RFC3339, row[3])
		if err != nil {
			return models.VideoRecord{}, fmt.Errorf("bad published_at %q: %w", row[3], err)
		}
	}

	return models.VideoRecord{
		VideoID:      row[0],
		Title:        row[1],
		ChannelTitle: row[2],
		PublishedAt:  publishedAt,
		ThumbnailURL: row[5],
		GeminiReply:  row[6],
		Hit:          row[7] == "yes",
	}, nil
}
