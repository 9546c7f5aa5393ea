package dane

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/sebmatecho/sipsa-tracker/utils"
)

// BrowserSource renders pages in headless Chrome. It is used when the
// publisher's site refuses plain HTTP clients. Bulletin files are still
// downloaded over HTTP.
type BrowserSource struct {
	chromeBin string
	userAgent string
	timeout   time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger

	once        sync.Once
	startErr    error
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

// NewBrowserSource prepares a browser source. Chrome is started on the first
// Fetch; call Close to stop it.
func NewBrowserSource(chromeBin, userAgent string, timeout time.Duration,
	retry *utils.RetryConfig, logger *utils.Logger) *BrowserSource {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	return &BrowserSource{
		chromeBin: chromeBin,
		userAgent: userAgent,
		timeout:   timeout,
		retry:     retry,
		logger:    logger,
	}
}

func (b *BrowserSource) start() {
	b.logger.Info("[browser] Using browser binary: %s", b.chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}
	if b.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	// Suppress chromedp log noise
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b.browserCtx = ctx
	b.cancelAlloc = cancelAlloc
	b.cancelCtx = cancelCtx

	// Launch Chrome now so every tab context below shares this browser.
	if err := chromedp.Run(ctx); err != nil {
		b.startErr = fmt.Errorf("browser: start: %w", err)
	}
}

// Fetch navigates to url and returns the rendered document HTML.
func (b *BrowserSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	b.once.Do(b.start)
	if b.startErr != nil {
		return nil, b.startErr
	}

	var html string
	err := b.retry.Do(ctx, "render "+url, func() error {
		tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
		defer cancelTab()

		timeout := b.timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
		defer cancelTimeout()

		// Tie the tab to the caller's context as well.
		stop := context.AfterFunc(ctx, cancelTab)
		defer stop()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("browser: fetch: %w", err)
	}
	return []byte(html), nil
}

// Close stops the browser if it was started.
func (b *BrowserSource) Close() {
	if b.cancelCtx != nil {
		b.cancelCtx()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
