package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-pro-latest:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "yes or no")
		assert.Equal(t, "image/jpeg", req.Contents[0].Parts[1].InlineData.MimeType)

		decoded, err := base64.StdEncoding.DecodeString(req.Contents[0].Parts[1].InlineData.Data)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake-image"), decoded)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Yes, this is an animal."}]}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-pro-latest")
	client.SetBaseURL(server.URL)

	reply, err := client.Classify(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Yes, this is an animal.", reply)
}

func TestClassify_MissingCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-pro-latest")
	client.SetBaseURL(server.URL)

	reply, err := client.Classify(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestClassify_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "gemini-1.5-pro-latest")
	client.SetBaseURL(server.URL)

	_, err := client.Classify(context.Background(), []byte("img"), "image/jpeg")

	var classifierErr *ClassifierError
	require.ErrorAs(t, err, &classifierErr)
	assert.Equal(t, http.StatusTooManyRequests, classifierErr.StatusCode)
	assert.Contains(t, classifierErr.Body, "quota exceeded")
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{name: "Plain yes", raw: "yes", expected: true},
		{name: "Capitalized with trailing text", raw: "Yes, it is.", expected: true},
		{name: "Leading whitespace", raw: "  YES", expected: true},
		{name: "Plain no", raw: "no", expected: false},
		{name: "Empty reply", raw: "", expected: false},
		{name: "Ambiguous reply", raw: "I cannot tell", expected: false},
		{name: "Whitespace only", raw: "   ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeVerdict(tt.raw))
		})
	}
}

func TestGuessMime(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{url: "https://i.ytimg.com/vi/abc/maxres.PNG", expected: "image/png"},
		{url: "https://i.ytimg.com/vi/abc/thumb.webp", expected: "image/webp"},
		{url: "https://i.ytimg.com/vi/abc/hqdefault.jpg", expected: "image/jpeg"},
		{url: "https://i.ytimg.com/vi/abc/hqdefault.png?size=small", expected: "image/png"},
		{url: "not a url at all", expected: "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, GuessMime(tt.url))
		})
	}
}
