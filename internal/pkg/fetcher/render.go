package fetcher

import (
	"context"
	"time"

	"github.com/receiptexporter/receiptexporter/internal/pkg/headless"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// fetchRender renders the document in a background tab and prints it.
func (f *Fetcher) fetchRender(ctx context.Context, req Request) ([]byte, error) {
	if req.HTML == "" && req.URL != "" && f.receiptFromHTML && req.Item.Type == models.Receipt {
		html, err := f.fetchHTML(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		req.HTML = html
		if req.BaseURL == "" {
			req.BaseURL = origin(req.URL)
		}
	}

	if req.HTML != "" {
		return f.capture(ctx, headless.HTMLDataURL(req.HTML, req.BaseURL), f.delays.HTMLSettle)
	}

	if req.URL == "" {
		return nil, ErrMissingURL
	}

	settle := f.delays.SlowSettle
	if req.Item.Type == models.Receipt {
		settle = f.delays.ReceiptSettle
	}

	return f.capture(ctx, req.URL, settle)
}

// capture runs the print pipeline on one fresh tab: open, settle, attach,
// emulate print media, settle, print. The tab is always detached and closed
// afterwards; teardown failures are only logged.
func (f *Fetcher) capture(ctx context.Context, target string, settle time.Duration) ([]byte, error) {
	if f.browser == nil {
		return nil, captureError(StageOpen, ErrContextCreate, ErrNoBrowser)
	}

	tab, err := f.browser.NewTab(ctx, target)
	if err != nil {
		return nil, captureError(StageOpen, ErrContextCreate, err)
	}
	defer f.teardown(context.WithoutCancel(ctx), tab)

	f.sleep(settle)

	if err := tab.Attach(ctx); err != nil {
		return nil, captureError(StageAttach, ErrAttach, err)
	}

	if err := tab.EmulatePrintMedia(ctx); err != nil {
		return nil, captureError(StageEmulate, ErrCapture, err)
	}

	f.sleep(f.delays.PrintSettle)

	data, err := tab.PrintToPDF(ctx, headless.A4)
	if err != nil {
		return nil, captureError(StagePrint, ErrCapture, err)
	}

	return data, nil
}

func (f *Fetcher) teardown(ctx context.Context, tab headless.Tab) {
	if err := tab.Detach(ctx); err != nil {
		f.logger.Warn("unable to detach from tab", "error", err)
	}

	f.sleep(f.delays.Teardown)

	if err := tab.Close(ctx); err != nil {
		f.logger.Warn("unable to close tab", "error", err)
	}
}
