package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/receiptexporter/receiptexporter/internal/pkg/utils"
)

// fetchDirect downloads a ready-made document with the session cookies. Any
// filename the server suggests is ignored.
func (f *Fetcher) fetchDirect(ctx context.Context, req Request) ([]byte, error) {
	if req.URL == "" {
		return nil, ErrMissingURL
	}

	resp, err := f.get(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	if f.fallbackCapture && !utils.IsPDF(data) && f.browser != nil {
		f.logger.Info("response is not a PDF, capturing the page instead", "url", req.URL, "content_type", resp.Header.Get("Content-Type"))
		return f.capture(ctx, req.URL, f.delays.SlowSettle)
	}

	return data, nil
}

// fetchHTML downloads a page and returns it decoded to UTF-8.
func (f *Fetcher) fetchHTML(ctx context.Context, target string) (string, error) {
	resp, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequest, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequest, err)
	}

	return string(body), nil
}

func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: target}
	}

	return resp, nil
}
