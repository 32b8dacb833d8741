package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// prompt is the fixed instruction sent with every image.
	prompt = "Identify whether the image contains an animal or an illegally " +
		"traded wildlife product. Reply strictly just with a yes or no"

	errBodyTruncateAt = 500
)

// ClassifierError is returned on a non-success response from the
// classification service.
type ClassifierError struct {
	StatusCode int
	Body       string
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("gemini error %d: %s", e.StatusCode, e.Body)
}

// Client sends images to the Gemini generateContent endpoint for a
// yes/no wildlife verdict.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *resty.Client
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewClient creates a new Gemini client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetHeader("User-Agent", "Wildlife-Scan-Bot/1.0"),
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// IsEnabled reports whether the client has an API key to work with.
func (c *Client) IsEnabled() bool {
	return c.apiKey != ""
}

// Classify sends one image plus the fixed prompt and returns the raw text
// reply. A well-formed response without the candidates path yields an
// empty reply, not an error.
func (c *Client) Classify(ctx context.Context, image []byte, mimeType string) (string, error) {
	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", c.apiKey).
		SetBody(payload).
		Post(endpoint)

	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &ClassifierError{
			StatusCode: resp.StatusCode(),
			Body:       truncate(string(resp.Body()), errBodyTruncateAt),
		}
	}

	var result generateContentResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// NormalizeVerdict reduces a free-text classifier reply to a boolean.
// Any reply beginning with "y" is positive; everything else, including
// empty or malformed text, is conservatively negative.
func NormalizeVerdict(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "y")
}

// GuessMime infers an image MIME type from the URL's file extension.
// JPEG is the platform's default thumbnail format.
func GuessMime(imageURL string) string {
	p := ""
	if u, err := url.Parse(imageURL); err == nil {
		p = strings.ToLower(u.Path)
	}
	switch {
	case strings.HasSuffix(p, ".png"):
		return "image/png"
	case strings.HasSuffix(p, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
