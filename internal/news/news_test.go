package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
)

const upstreamBody = `{
  "articles": {
    "results": [
      {
        "source": {"title": "Tech Daily"},
        "authors": [{"name": "Ada Lovelace"}, {"name": "Alan Turing"}],
        "title": "OpenAI ships a new model",
        "body": "The model improves reasoning.",
        "url": "https://example.com/a",
        "image": "https://example.com/a.png",
        "dateTime": "2025-04-02T10:00:00Z"
      },
      {
        "title": "Lab publishes transformer study",
        "description": "A university paper on attention.",
        "url": "https://example.com/b",
        "image": "https://example.com/b.png"
      },
      {
        "title": "Robots at the fair",
        "body": "No image here.",
        "url": "https://example.com/c"
      },
      {
        "title": "Security camera footage of a shooting",
        "body": "AI analysis.",
        "url": "https://example.com/d",
        "image": "https://example.com/d.png"
      },
      {
        "body": "Chips everywhere.",
        "url": "https://example.com/e",
        "image": "https://example.com/e.png",
        "authors": ["Grace Hopper"]
      }
    ]
  }
}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *cache.Memory) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := cache.NewMemory()
	pages := cache.New[Page]("news", "news:", store, 30*time.Minute, nil)
	f := NewFetcher(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, pages)
	f.retry.InitialDelay = time.Millisecond
	f.now = func() time.Time { return time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC) }
	return f, store
}

func TestFetchMapsAndFilters(t *testing.T) {
	var query map[string][]string
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/article/getArticles", r.URL.Path)
		query = r.URL.Query()
		w.Write([]byte(upstreamBody))
	})

	page, err := f.Fetch(context.Background(), CategoryAll, 1, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"k"}, query["apiKey"])
	assert.Equal(t, CategoryAll.Keywords(), query["keyword"])
	assert.Equal(t, []string{"or"}, query["keywordOper"])
	assert.Equal(t, []string{"5"}, query["articlesCount"])
	assert.Equal(t, []string{"1"}, query["articlesPage"])
	assert.Equal(t, []string{"false"}, query["articlesSortByAsc"])

	require.Len(t, page.Articles, 3)
	assert.False(t, page.HasMore)

	a := page.Articles[0]
	assert.Equal(t, "Tech Daily", a.Source.Name)
	assert.Nil(t, a.Source.ID)
	require.NotNil(t, a.Author)
	assert.Equal(t, "Ada Lovelace, Alan Turing", *a.Author)
	assert.Equal(t, "The model improves reasoning.", *a.Description)
	assert.Equal(t, "The model improves reasoning.", *a.Content)
	assert.Equal(t, "OpenAI", a.Category)
	assert.Equal(t, "2025-04-02T10:00:00Z", a.PublishedAt)

	b := page.Articles[1]
	assert.Equal(t, "Unknown Source", b.Source.Name)
	assert.Nil(t, b.Author)
	assert.Equal(t, "A university paper on attention.", *b.Description)
	assert.Nil(t, b.Content)
	assert.Equal(t, "Research", b.Category)
	assert.Equal(t, "2025-04-02T12:00:00Z", b.PublishedAt)

	e := page.Articles[2]
	assert.Equal(t, "No Title", e.Title)
	assert.Equal(t, "Grace Hopper", *e.Author)
	assert.Equal(t, "General AI", e.Category)
}

func TestFetchCachesPages(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(upstreamBody))
	})
	ctx := context.Background()

	_, err := f.Fetch(ctx, CategoryOpenAI, 1, 3)
	require.NoError(t, err)
	page, err := f.Fetch(ctx, CategoryOpenAI, 1, 3)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, int32(1), calls.Load())

	_, err = f.Fetch(ctx, CategoryOpenAI, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchUpstreamFailureYieldsEmptyPage(t *testing.T) {
	var calls atomic.Int32
	f, store := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	page, err := f.Fetch(context.Background(), CategoryMeta, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Articles)
	assert.NotNil(t, page.Articles)
	assert.False(t, page.HasMore)
	assert.Equal(t, int32(2), calls.Load(), "server errors are retried once")
	assert.Equal(t, 0, store.Len(), "failures are not cached")
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := f.Fetch(context.Background(), CategoryAll, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchMissingArticles(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	page, err := f.Fetch(context.Background(), CategoryAll, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Articles)
}

func TestFetchRejectsHugePage(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := f.Fetch(context.Background(), CategoryAll, 1, 500)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryAll, c)

	c, err = ParseCategory("Startups")
	require.NoError(t, err)
	assert.Equal(t, CategoryStartups, c)

	_, err = ParseCategory("sports")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCategorizeOrder(t *testing.T) {
	assert.Equal(t, "OpenAI", categorize("Google invests in OpenAI rival", "", "", CategoryAll))
	assert.Equal(t, "Meta", categorize("Llama 4 benchmark", "", "", CategoryResearch))
	assert.Equal(t, "Startups", categorize("Robotics firm raised $5M", "", "", CategoryAll))
	assert.Equal(t, "Research", categorize("New study on robots", "", "", CategoryStartups))
	assert.Equal(t, "Startups", categorize("Robots", "", "", CategoryStartups))
}

func TestIsViolent(t *testing.T) {
	assert.True(t, isViolent("Police investigate MURDER"))
	assert.True(t, isViolent("new screenshot tool"), "substring match")
	assert.False(t, isViolent("A calm day in the lab"))
	assert.False(t, isViolent(""))
}
