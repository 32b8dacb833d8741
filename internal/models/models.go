package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind identifies what piece of content produced a signal hit.
type SourceKind string

const (
	SourceComment   SourceKind = "comment"
	SourceThumbnail SourceKind = "thumbnail"
)

// VideoRecord is one video returned by a keyword search. Immutable for the
// duration of a scan; the verdict fields are filled in by the scan engine
// when thumbnail analysis is enabled.
type VideoRecord struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
	GeminiReply  string    `json:"gemini_reply,omitempty"`
	Hit          bool      `json:"hit"`
}

// URL returns the public watch URL for the video.
func (v VideoRecord) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.VideoID)
}

// CommentRecord is one matchable text unit from a video's comment stream.
// Replies are individual records just like top-level comments.
type CommentRecord struct {
	CommentID string `json:"comment_id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	VideoID   string `json:"video_id,omitempty"`
}

// SignalHit records content that matched a trafficking-signal pattern.
// A hit exists only if it carries at least one phone number, one keyword,
// or a positive classifier verdict.
type SignalHit struct {
	SourceKind   SourceKind `json:"source_kind"`
	VideoID      string     `json:"video_id"`
	VideoTitle   string     `json:"video_title"`
	CommentID    string     `json:"comment_id,omitempty"`
	Author       string     `json:"author,omitempty"`
	Text         string     `json:"text,omitempty"`
	PhoneNumbers []string   `json:"phone_numbers,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	VerdictText  string     `json:"verdict_text,omitempty"`
	IsPositive   bool       `json:"is_positive"`
}

// ScanJobSpec describes one scan. Immutable once the scan starts.
type ScanJobSpec struct {
	Keyword             string        `json:"keyword"`
	MaxVideos           int           `json:"max_videos"`
	MaxCommentsPerVideo int           `json:"max_comments_per_video"`
	Language            string        `json:"language"`
	Keywords            []string      `json:"keywords,omitempty"`
	AnalyzeThumbnails   bool          `json:"analyze_thumbnails"`
	ClassifierDelay     time.Duration `json:"classifier_delay"`
}

// Validate rejects an unusable spec before any network call is made.
func (s ScanJobSpec) Validate() error {
	if strings.TrimSpace(s.Keyword) == "" {
		return &ValidationError{Field: "keyword", Reason: "must not be empty"}
	}
	if s.MaxVideos < 0 {
		return &ValidationError{Field: "max_videos", Reason: "must not be negative"}
	}
	if s.MaxCommentsPerVideo < 0 {
		return &ValidationError{Field: "max_comments_per_video", Reason: "must not be negative"}
	}
	return nil
}

// ValidationError reports a missing or malformed job field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scan job: %s %s", e.Field, e.Reason)
}

// ScanSummary is the outcome of one completed scan, used for reports
// and notifications.
type ScanSummary struct {
	JobID          string    `json:"job_id"`
	Keyword        string    `json:"keyword"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	VideosScanned  int       `json:"videos_scanned"`
	CommentHits    int       `json:"comment_hits"`
	ThumbnailHits  int       `json:"thumbnail_hits"`
	ArtifactName   string    `json:"artifact_name,omitempty"`
	TimedOut       bool      `json:"timed_out"`
	FailureMessage string    `json:"failure_message,omitempty"`
}
