package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key")
	client.SetBaseURL(server.URL)
	client.SetRetryBaseDelay(time.Millisecond)
	return client, server
}

func searchPage(ids []string, nextToken string) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]interface{}{
			"id": map[string]string{"videoId": id},
			"snippet": map[string]interface{}{
				"title":        "Video " + id,
				"channelTitle": "Channel " + id,
				"publishedAt":  "2024-03-01T12:00:00Z",
				"thumbnails": map[string]interface{}{
					"default": map[string]string{"url": "https://i.ytimg.com/vi/" + id + "/default.jpg"},
				},
			},
		})
	}
	page := map[string]interface{}{"items": items}
	if nextToken != "" {
		page["nextPageToken"] = nextToken
	}
	return page
}

func TestSearchVideos_Pagination(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "pangolin", r.URL.Query().Get("q"))
		assert.Equal(t, "date", r.URL.Query().Get("order"))

		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		token := r.URL.Query().Get("pageToken")

		var ids []string
		start := 0
		if token == "page2" {
			start = 50
		} else if token == "page3" {
			start = 100
		}
		for i := 0; i < maxResults; i++ {
			ids = append(ids, fmt.Sprintf("vid%03d", start+i))
		}

		next := map[string]string{"": "page2", "page2": "page3", "page3": ""}[token]
		json.NewEncoder(w).Encode(searchPage(ids, next))
	})

	client, _ := newTestClient(t, handler)

	videos, err := client.SearchVideos(context.Background(), "pangolin", 120)
	require.NoError(t, err)

	assert.Len(t, videos, 120)
	assert.Equal(t, 3, requests, "should request ceil(120/50) pages")
	assert.Equal(t, "vid000", videos[0].VideoID)
	assert.Equal(t, "vid119", videos[119].VideoID)
}

func TestSearchVideos_ZeroLimit(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(searchPage([]string{"vid1"}, ""))
	}))

	videos, err := client.SearchVideos(context.Background(), "pangolin", 0)
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Equal(t, 0, requests)
}

func TestSearchVideos_StopsWithoutNextToken(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(searchPage([]string{"vid1", "vid2"}, ""))
	}))

	videos, err := client.SearchVideos(context.Background(), "pangolin", 100)
	require.NoError(t, err)
	assert.Len(t, videos, 2)
	assert.Equal(t, 1, requests)
}

func TestSearchVideos_DropsMissingIDsAndDuplicates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchPage([]string{"vid1", "", "vid1", "vid2"}, ""))
	}))

	videos, err := client.SearchVideos(context.Background(), "pangolin", 10)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "vid1", videos[0].VideoID)
	assert.Equal(t, "vid2", videos[1].VideoID)
}

func TestSearchVideos_ThumbnailPreference(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id": map[string]string{"videoId": "best"},
					"snippet": map[string]interface{}{
						"title": "t",
						"thumbnails": map[string]interface{}{
							"default": map[string]string{"url": "https://t/default.jpg"},
							"maxres":  map[string]string{"url": "https://t/maxres.jpg"},
							"medium":  map[string]string{"url": "https://t/medium.jpg"},
						},
					},
				},
				{
					"id": map[string]string{"videoId": "bare"},
					"snippet": map[string]interface{}{
						"title":      "t",
						"thumbnails": map[string]interface{}{},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(page)
	}))

	videos, err := client.SearchVideos(context.Background(), "pangolin", 10)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "https://t/maxres.jpg", videos[0].ThumbnailURL)
	assert.Equal(t, "https://i.ytimg.com/vi/bare/hqdefault.jpg", videos[1].ThumbnailURL)
}

func TestSearchVideos_RetryThenFail(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"backend error"}}`))
	}))

	_, err := client.SearchVideos(context.Background(), "pangolin", 10)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Body, "backend error")
	assert.Equal(t, apiRetryBudget+1, requests)
}

func TestSearchVideos_RetryThenSucceed(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(searchPage([]string{"vid1"}, ""))
	}))

	videos, err := client.SearchVideos(context.Background(), "pangolin", 10)
	require.NoError(t, err)
	assert.Len(t, videos, 1)
	assert.Equal(t, 3, requests)
}

func commentThreadPage(threads []map[string]interface{}, nextToken string) map[string]interface{} {
	page := map[string]interface{}{"items": threads}
	if nextToken != "" {
		page["nextPageToken"] = nextToken
	}
	return page
}

func commentThreadJSON(id, author, text string, replies ...map[string]interface{}) map[string]interface{} {
	thread := map[string]interface{}{
		"snippet": map[string]interface{}{
			"topLevelComment": map[string]interface{}{
				"id": id,
				"snippet": map[string]string{
					"authorDisplayName": author,
					"textDisplay":       text,
				},
			},
		},
	}
	if len(replies) > 0 {
		thread["replies"] = map[string]interface{}{"comments": replies}
	}
	return thread
}

func replyJSON(id, author, text string) map[string]interface{} {
	return map[string]interface{}{
		"id": id,
		"snippet": map[string]string{
			"authorDisplayName": author,
			"textDisplay":       text,
		},
	}
}

func TestFetchComments_IncludesReplies(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid1", r.URL.Query().Get("videoId"))
		assert.Equal(t, "plainText", r.URL.Query().Get("textFormat"))
		assert.Equal(t, "snippet,replies", r.URL.Query().Get("part"))

		json.NewEncoder(w).Encode(commentThreadPage([]map[string]interface{}{
			commentThreadJSON("c1", "alice", "first",
				replyJSON("c1.r1", "bob", "reply one"),
				replyJSON("c1.r2", "carol", "reply two")),
			commentThreadJSON("c2", "dave", "second"),
		}, ""))
	}))

	comments, disabled, err := client.FetchComments(context.Background(), "vid1", 100)
	require.NoError(t, err)
	assert.False(t, disabled)
	require.Len(t, comments, 4)
	assert.Equal(t, "c1", comments[0].CommentID)
	assert.Equal(t, "reply one", comments[1].Text)
	assert.Equal(t, "carol", comments[2].Author)
	assert.Equal(t, "c2", comments[3].CommentID)
	assert.Equal(t, "vid1", comments[0].VideoID)
}

func TestFetchComments_LimitCapsReplies(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(commentThreadPage([]map[string]interface{}{
			commentThreadJSON("c1", "alice", "first",
				replyJSON("c1.r1", "bob", "reply one"),
				replyJSON("c1.r2", "carol", "reply two")),
		}, ""))
	}))

	comments, disabled, err := client.FetchComments(context.Background(), "vid1", 2)
	require.NoError(t, err)
	assert.False(t, disabled)
	assert.Len(t, comments, 2)
}

func TestFetchComments_Disabled(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"errors":[{"reason":"commentsDisabled"}]}}`))
	}))

	comments, disabled, err := client.FetchComments(context.Background(), "vid1", 100)
	require.NoError(t, err)
	assert.True(t, disabled)
	assert.Empty(t, comments)
	assert.Equal(t, 1, requests, "disabled state must not burn retries")
}

func TestFetchImage(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.SetRetryBaseDelay(time.Millisecond)

	data, err := client.FetchImage(context.Background(), server.URL+"/thumb.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
	assert.Equal(t, 2, requests)
}

func TestFetchImage_ExhaustsBudget(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.SetRetryBaseDelay(time.Millisecond)

	_, err := client.FetchImage(context.Background(), server.URL+"/thumb.jpg")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, imageRetryBudget+1, requests)
}
