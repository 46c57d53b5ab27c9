package news

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"QuantSig/internal/domain/models"
	domrepo "QuantSig/internal/domain/repository"
	xhttp "QuantSig/pkg/http"
)

// HTTPProvider fetches scored news for a symbol from the news-sentiment
// service over HTTP. A missing or failing service degrades to an empty news
// window; the sentiment evaluator then simply does not fire.
type HTTPProvider struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPProvider builds the provider with timeout and base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type newsItemResponse struct {
	Headline    string  `json:"headline"`
	Sentiment   float64 `json:"sentiment"`
	Source      string  `json:"source"`
	PublishedAt int64   `json:"published_at"` // unix seconds
}

type newsResponse struct {
	Items []newsItemResponse `json:"items"`
}

func (p *HTTPProvider) GetLatestNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if p.client == nil || p.baseURL == "" {
		return nil, fmt.Errorf("news http client not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	var nr newsResponse
	err := p.getJSONWithRetry(ctx, "/news/latest", map[string][]string{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}, &nr, 3)
	if err != nil {
		return nil, fmt.Errorf("get news: %w", err)
	}
	out := make([]models.NewsItem, 0, len(nr.Items))
	for _, it := range nr.Items {
		out = append(out, models.NewsItem{
			Symbol:         symbol,
			Headline:       it.Headline,
			SentimentScore: it.Sentiment,
			Source:         it.Source,
			PublishedAt:    time.Unix(it.PublishedAt, 0).UTC(),
		})
	}
	return out, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         p.baseURL + path,
		QueryParams: params,
	}, dest)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// getJSONWithRetry retries transient errors with linear backoff.
func (p *HTTPProvider) getJSONWithRetry(ctx context.Context, path string, params map[string][]string, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return p.getJSON(ctx, path, params, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = p.getJSON(ctx, path, params, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

var _ domrepo.NewsProvider = (*HTTPProvider)(nil)
