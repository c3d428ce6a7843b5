package dep

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Fetcher pulls stored assets (templates, fonts) back over HTTP.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type fetcher struct {
	client *http.Client
}

func NewFetcher(_ context.Context) Fetcher {
	return &fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (f *fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var b []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		res, err := f.client.Do(req)
		if err != nil {
			return err
		}

		defer func() {
			_ = res.Body.Close()
		}()

		if res.StatusCode != http.StatusOK {
			err := fmt.Errorf("fetch %s failed, status: %d", url, res.StatusCode)
			if res.StatusCode >= 400 && res.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		b, err = io.ReadAll(res.Body)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)); err != nil {
		return nil, err
	}

	return b, nil
}
