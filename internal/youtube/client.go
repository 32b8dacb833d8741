package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	searchPageSize   = 50
	commentsPageSize = 100

	apiRetryBudget    = 5
	imageRetryBudget  = 4
	backoffMultiplier = 1.7
	errBodyTruncateAt = 400
)

// thumbnailPreference is the fixed quality order used to pick a
// thumbnail URL from search snippets.
var thumbnailPreference = []string{"maxres", "standard", "high", "medium", "default"}

// errCommentsDisabled marks the API's commentsDisabled response. It is a
// terminal state for one video's comment collection, not a failure.
var errCommentsDisabled = errors.New("comments disabled")

// FetchError is returned when the retry budget against an API endpoint is
// exhausted. It carries the last status code and a truncated response body.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("GET %s failed: %d %s", e.URL, e.StatusCode, e.Body)
}

// Client is a paginated, retrying YouTube Data API client.
type Client struct {
	apiKey         string
	baseURL        string
	client         *resty.Client
	retryBaseDelay time.Duration
}

// NewClient creates a new YouTube Data API client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:         apiKey,
		baseURL:        defaultBaseURL,
		retryBaseDelay: time.Second,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "Wildlife-Scan-Bot/1.0"),
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// SetRetryBaseDelay overrides the first backoff delay. Used by tests.
func (c *Client) SetRetryBaseDelay(d time.Duration) {
	c.retryBaseDelay = d
}

type searchResponse struct {
	Items         []searchItem `json:"items"`
	NextPageToken string       `json:"nextPageToken"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
		Thumbnails   map[string]struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type commentThreadsResponse struct {
	Items         []commentThread `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

type commentThread struct {
	Snippet struct {
		TopLevelComment commentItem `json:"topLevelComment"`
	} `json:"snippet"`
	Replies struct {
		Comments []commentItem `json:"comments"`
	} `json:"replies"`
}

type commentItem struct {
	ID      string `json:"id"`
	Snippet struct {
		AuthorDisplayName string `json:"authorDisplayName"`
		TextDisplay       string `json:"textDisplay"`
	} `json:"snippet"`
}

// SearchVideos enumerates up to limit videos matching keyword, newest
// first. Results without a video id are dropped and duplicates collapse,
// so the returned count may be lower than limit.
func (c *Client) SearchVideos(ctx context.Context, keyword string, limit int) ([]models.VideoRecord, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", keyword)
	params.Set("order", "date")
	params.Set("safeSearch", "none")

	items, err := fetchAll(ctx, c, "/search", params, searchPageSize, limit,
		func(body []byte) ([]searchItem, string, error) {
			var resp searchResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, "", fmt.Errorf("failed to parse search response: %w", err)
			}
			return resp.Items, resp.NextPageToken, nil
		})
	if err != nil {
		return nil, err
	}

	var videos []models.VideoRecord
	seen := make(map[string]bool)
	for _, item := range items {
		id := item.ID.VideoID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil && item.Snippet.PublishedAt != "" {
			logrus.Debugf("Failed to parse publishedAt for video %s: %v", id, err)
		}

		videos = append(videos, models.VideoRecord{
			VideoID:      id,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  publishedAt,
			ThumbnailURL: pickThumbnailURL(item, id),
		})
	}

	return videos, nil
}

func pickThumbnailURL(item searchItem, videoID string) string {
	for _, quality := range thumbnailPreference {
		if thumb, ok := item.Snippet.Thumbnails[quality]; ok && thumb.URL != "" {
			return thumb.URL
		}
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
}

// FetchComments collects up to limit comment records for a video,
// including replies, each as an individually matchable unit. When the
// video has comments turned off it returns disabled=true with no error.
func (c *Client) FetchComments(ctx context.Context, videoID string, limit int) (comments []models.CommentRecord, disabled bool, err error) {
	params := url.Values{}
	params.Set("part", "snippet,replies")
	params.Set("videoId", videoID)
	params.Set("textFormat", "plainText")

	comments, err = fetchAll(ctx, c, "/commentThreads", params, commentsPageSize, limit,
		func(body []byte) ([]models.CommentRecord, string, error) {
			var resp commentThreadsResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, "", fmt.Errorf("failed to parse commentThreads response: %w", err)
			}

			var page []models.CommentRecord
			for _, thread := range resp.Items {
				page = append(page, commentRecord(thread.Snippet.TopLevelComment, videoID))
				for _, reply := range thread.Replies.Comments {
					page = append(page, commentRecord(reply, videoID))
				}
			}
			return page, resp.NextPageToken, nil
		})

	if errors.Is(err, errCommentsDisabled) {
		return nil, true, nil
	}
	return comments, false, err
}

func commentRecord(item commentItem, videoID string) models.CommentRecord {
	return models.CommentRecord{
		CommentID: item.ID,
		Author:    item.Snippet.AuthorDisplayName,
		Text:      item.Snippet.TextDisplay,
		VideoID:   videoID,
	}
}

// FetchImage downloads raw image bytes, retrying transient failures.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr *FetchError

	for attempt := 1; attempt <= imageRetryBudget+1; attempt++ {
		resp, err := c.client.R().SetContext(ctx).Get(imageURL)
		if err == nil && resp.StatusCode() == http.StatusOK && len(resp.Body()) > 0 {
			return resp.Body(), nil
		}

		lastErr = &FetchError{URL: imageURL}
		if err != nil {
			lastErr.Body = truncate(err.Error(), errBodyTruncateAt)
		} else {
			lastErr.StatusCode = resp.StatusCode()
			lastErr.Body = truncate(string(resp.Body()), errBodyTruncateAt)
		}

		if attempt <= imageRetryBudget {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

// fetchAll drives cursor pagination over an API endpoint until the service
// stops returning a continuation token, a page comes back empty, or the
// running total reaches limit. limit == 0 performs zero requests.
func fetchAll[T any](ctx context.Context, c *Client, endpoint string, base url.Values, pageSize, limit int, parse func(body []byte) ([]T, string, error)) ([]T, error) {
	var items []T
	pageToken := ""

	for len(items) < limit {
		toFetch := limit - len(items)
		if toFetch > pageSize {
			toFetch = pageSize
		}

		params := url.Values{}
		for k, v := range base {
			params[k] = v
		}
		params.Set("maxResults", strconv.Itoa(toFetch))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, err := c.getJSON(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}

		pageItems, nextToken, err := parse(body)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		if nextToken == "" || len(pageItems) == 0 {
			break
		}
		pageToken = nextToken
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// getJSON performs one GET with the retry budget, returning the raw body
// of the first 200 response. The commentsDisabled rejection is surfaced
// immediately without burning retries.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + endpoint
	var lastErr *FetchError

	for attempt := 1; attempt <= apiRetryBudget+1; attempt++ {
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			SetQueryParam("key", c.apiKey).
			Get(fullURL)

		if err == nil {
			if resp.StatusCode() == http.StatusOK {
				return resp.Body(), nil
			}
			if resp.StatusCode() == http.StatusForbidden && strings.Contains(string(resp.Body()), "commentsDisabled") {
				return nil, errCommentsDisabled
			}
			lastErr = &FetchError{
				URL:        fullURL,
				StatusCode: resp.StatusCode(),
				Body:       truncate(string(resp.Body()), errBodyTruncateAt),
			}
		} else {
			lastErr = &FetchError{URL: fullURL, Body: truncate(err.Error(), errBodyTruncateAt)}
		}

		if attempt <= apiRetryBudget {
			logrus.Debugf("Retrying %s (attempt %d): %v", endpoint, attempt, lastErr)
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

// backoff sleeps for retryBaseDelay * 1.7^attempt, or returns early when
// the context is cancelled.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(c.retryBaseDelay) * math.Pow(backoffMultiplier, float64(attempt)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
