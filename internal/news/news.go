// Package news fetches AI news articles from the Event Registry article API,
// filters them for display and caches each page.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/resilience"
)

const (
	DefaultBaseURL  = "https://eventregistry.org/api/v1"
	DefaultPageSize = 12
	maxPageSize     = 100
)

type Source struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

type Article struct {
	Source      Source  `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     *string `json:"content"`
	Category    string  `json:"category"`
}

// Page is one page of filtered articles.
type Page struct {
	Articles []Article `json:"articles"`
	HasMore  bool      `json:"hasMore"`
}

type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	DefaultPageSize int
}

// Fetcher queries the article API. Pages are cached; upstream failures yield
// an empty page that is not cached.
type Fetcher struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
	cache    *cache.Cache[Page]
	retry    resilience.RetryConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewFetcher(cfg Config, pages *cache.Cache[Page]) *Fetcher {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.DefaultPageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		cache:    pages,
		retry:    resilience.RetryConfig{MaxAttempts: 2, InitialDelay: 200 * time.Millisecond},
		logger:   slog.Default().With("component", "news"),
		now:      time.Now,
	}
}

// Fetch returns one page of articles for category. page is 1-based; a
// non-positive pageSize uses the configured default.
func (f *Fetcher) Fetch(ctx context.Context, category Category, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = f.pageSize
	}
	if pageSize > maxPageSize {
		return Page{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "pageSize must be at most %d", maxPageSize)
	}

	key := fmt.Sprintf("%s:%d:%d", category, pageSize, page)
	result, _, err := f.cache.GetOrCompute(ctx, key, func(ctx context.Context) (Page, bool, error) {
		articles, err := f.query(ctx, category, page, pageSize)
		if err != nil {
			f.logger.Warn("news request failed, serving empty page", "category", category, "page", page, "error", err)
			return Page{Articles: []Article{}}, false, nil
		}
		return Page{Articles: articles, HasMore: len(articles) >= pageSize}, true, nil
	})
	return result, err
}

type upstreamResponse struct {
	Articles *struct {
		Results []upstreamArticle `json:"results"`
	} `json:"articles"`
}

type upstreamArticle struct {
	Source *struct {
		Title string `json:"title"`
	} `json:"source"`
	Authors     []upstreamAuthor `json:"authors"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	Description string           `json:"description"`
	URL         string           `json:"url"`
	Image       string           `json:"image"`
	DateTime    string           `json:"dateTime"`
}

// upstreamAuthor accepts either a plain name or an object with a name.
type upstreamAuthor string

func (a *upstreamAuthor) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*a = upstreamAuthor(name)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = upstreamAuthor(obj.Name)
	return nil
}

func (f *Fetcher) query(ctx context.Context, category Category, page, pageSize int) ([]Article, error) {
	params := url.Values{}
	params.Set("apiKey", f.apiKey)
	params.Set("resultType", "articles")
	for _, kw := range category.Keywords() {
		params.Add("keyword", kw)
	}
	params.Set("keywordOper", "or")
	params.Set("lang", "eng")
	params.Set("articlesSortBy", "date")
	params.Set("articlesSortByAsc", "false")
	params.Set("articlesCount", strconv.Itoa(pageSize))
	params.Set("articlesPage", strconv.Itoa(page))
	params.Set("includeArticleImage", "true")
	params.Set("includeArticleCategories", "true")
	endpoint := f.baseURL + "/article/getArticles?" + params.Encode()

	var body upstreamResponse
	err := resilience.Retry(ctx, "news-fetch", f.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			statusErr := fmt.Errorf("%w: news API returned %d", apperrors.ErrUpstream, resp.StatusCode)
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return resilience.Permanent(statusErr)
			}
			return statusErr
		}
		body = upstreamResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resilience.Permanent(fmt.Errorf("decoding news response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if body.Articles == nil {
		return []Article{}, nil
	}

	articles := make([]Article, 0, len(body.Articles.Results))
	for _, raw := range body.Articles.Results {
		a := f.toArticle(raw, category)
		if keep(a) {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

func (f *Fetcher) toArticle(raw upstreamArticle, category Category) Article {
	a := Article{
		Source:      Source{Name: "Unknown Source"},
		Title:       raw.Title,
		URL:         raw.URL,
		PublishedAt: raw.DateTime,
		Category:    categorize(raw.Title, raw.Body, raw.Description, category),
	}
	if raw.Source != nil && raw.Source.Title != "" {
		a.Source.Name = raw.Source.Title
	}
	if raw.Authors != nil {
		names := make([]string, len(raw.Authors))
		for i, au := range raw.Authors {
			names[i] = string(au)
		}
		author := strings.Join(names, ", ")
		a.Author = &author
	}
	if a.Title == "" {
		a.Title = "No Title"
	}
	if desc := firstNonEmpty(raw.Body, raw.Description); desc != "" {
		a.Description = &desc
	}
	if raw.Body != "" {
		body := raw.Body
		a.Content = &body
	}
	if raw.Image != "" {
		img := raw.Image
		a.URLToImage = &img
	}
	if a.PublishedAt == "" {
		a.PublishedAt = f.now().UTC().Format(time.RFC3339)
	}
	return a
}

// keep drops articles without an image or with violent text.
func keep(a Article) bool {
	if a.URLToImage == nil {
		return false
	}
	return !isViolent(a.Title) && !isViolent(deref(a.Description)) && !isViolent(deref(a.Content))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
