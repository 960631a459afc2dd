package stats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anrid/france-mortality/pkg/logger"
)

// Fetcher downloads raw datasets. Each download is attempted once.
type Fetcher struct {
	client    *http.Client
	log       *logger.Logger
	userAgent string

	// Delay is waited before every request so as not to hammer the
	// statistics sites.
	Delay time.Duration
}

func NewFetcher(log *logger.Logger, timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		log:       log,
		userAgent: userAgent,
		Delay:     250 * time.Millisecond,
	}
}

// download streams the body of url into w.
func (f *Fetcher) download(ctx context.Context, dataset, url string, w io.Writer) (int64, error) {
	netErr := func(status int, err error) error {
		return &NetworkError{Dataset: dataset, URL: url, StatusCode: status, Err: err}
	}

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return 0, netErr(0, ctx.Err())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, netErr(0, fmt.Errorf("create request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	log := f.log.WithFields(map[string]interface{}{"dataset": dataset, "url": url})
	log.Debug("download started")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, netErr(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, netErr(resp.StatusCode, nil)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, netErr(0, fmt.Errorf("read body: %w", err))
	}

	log.WithFields(map[string]interface{}{
		"bytes":    n,
		"duration": time.Since(start).String(),
	}).Info("download completed")
	return n, nil
}
