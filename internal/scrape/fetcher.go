package scrape

import (
	"context"
	"time"

	"github.com/adilkhan-b/scentwatch/pkg/config"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/gocolly/colly"
)

// browserHeaders mimic a desktop browser so the storefront serves the
// regular listing markup.
var browserHeaders = map[string]string{
	"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8," +
		"application/signed-exchange;v=b3;q=0.9",
	"Accept-Language": "en-US,en;q=0.9,ru;q=0.8",
}

// Fetcher retrieves the raw listing page over HTTP. It performs a single
// GET per call; retries are left to the scheduler's next tick.
type Fetcher struct {
	url       string
	userAgent string
	timeout   time.Duration
	logg      *logger.Logger
}

// NewFetcher builds a fetcher from the scrape configuration.
func NewFetcher(cfg config.ScrapeConfig, logg *logger.Logger) *Fetcher {
	return &Fetcher{
		url:       cfg.ListingURL,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		logg:      logg,
	}
}

// Fetch downloads the listing page and returns the raw HTML. Any transport
// failure (timeout, connection error, non-2xx) is reported as a fetch error
// and aborts the caller's cycle.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	// A fresh collector per call; colly tracks visited URLs otherwise.
	collector := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	if f.timeout > 0 {
		collector.SetRequestTimeout(f.timeout)
	}

	var body []byte
	var transportErr error

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range browserHeaders {
			r.Headers.Set(key, value)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		transportErr = err
	})

	if err := collector.Visit(f.url); err != nil {
		transportErr = err
	}

	if transportErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeFetch, transportErr, "fetch listing page")
	}
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeFetch, "listing page returned empty body")
	}

	f.logg.Debug(ctx, "listing page fetched")
	return body, nil
}
