// Package dane discovers and downloads the SIPSA weekly wholesale bulletins
// published on the DANE website.
package dane

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sebmatecho/sipsa-tracker/utils"
)

// maxBodyBytes caps a single page or bulletin download.
const maxBodyBytes = 64 << 20

// PageSource fetches the raw bytes behind a URL.
type PageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// NewHTTPClient returns a client with explicit dial, TLS and header timeouts.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// HTTPSource fetches pages and bulletins over plain HTTP with retry.
type HTTPSource struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewHTTPSource wraps client. timeout bounds each attempt; retry may be nil
// for a single attempt.
func NewHTTPSource(client *http.Client, userAgent string, timeout time.Duration,
	retry *utils.RetryConfig, logger *utils.Logger) *HTTPSource {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	return &HTTPSource{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		retry:     retry,
		logger:    logger,
	}
}

// Fetch GETs url. Server errors and transport failures are retried; other
// non-2xx statuses fail immediately.
func (s *HTTPSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := s.retry.Do(ctx, "GET "+url, func() error {
		b, err := s.get(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dane: fetch: %w", err)
	}
	return body, nil
}

// Download fetches a bulletin file.
func (s *HTTPSource) Download(ctx context.Context, url string) ([]byte, error) {
	s.logger.Debug("[dane] Downloading %s", url)
	return s.Fetch(ctx, url)
}

func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w: %w", err, utils.ErrPermanent)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", err, utils.ErrPermanent)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes: %w", maxBodyBytes, utils.ErrPermanent)
	}
	return body, nil
}
