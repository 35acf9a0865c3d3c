package scraper

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Headless fetches a page through a real browser. It exists for one case
// only: the challenge interstitial needs JavaScript to clear, and a plain
// GET can never pass it. Feature-flagged because it needs a local Chrome.
type Headless struct {
	timeout time.Duration
}

func NewHeadless() *Headless {
	return &Headless{timeout: 25 * time.Second}
}

func (h *Headless) Fetch(ctx context.Context, url string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(browserIdentities[0]),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, h.timeout)
	defer reqCancel()

	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
