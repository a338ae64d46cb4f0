package dataset

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"

	"chartdeck/internal/logger"
)

// Fetcher downloads CSV or Excel files over HTTP and loads them.
type Fetcher struct {
	client *resty.Client
	log    *logger.Logger
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "chartdeck/1.0")
	client.SetHeader("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	return &Fetcher{
		client: client,
		log:    logger.WithComponent("fetcher"),
	}
}

// Fetch downloads rawURL and loads it, picking the decoder from the last
// path segment of the URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Dataset, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("invalid url %q: scheme must be http or https", rawURL)
	}
	name := path.Base(u.Path)
	if Format(name) == "" {
		return nil, "", fmt.Errorf("%w: url %q has no file extension", ErrUnsupportedFormat, rawURL)
	}

	f.log.Info("Fetching dataset", map[string]interface{}{"url": rawURL})
	start := time.Now()

	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode())
	}

	ds, err := Load(name, bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, "", err
	}

	f.log.Info("Fetched dataset", map[string]interface{}{
		"url":      rawURL,
		"rows":     ds.Rows(),
		"columns":  ds.Cols(),
		"duration": time.Since(start).String(),
	})
	return ds, name, nil
}
