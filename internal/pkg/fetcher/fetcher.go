// Package fetcher turns one work item into PDF bytes and hands them to the
// sink. Documents are either downloaded directly or rendered in a browser tab
// and printed to PDF.
package fetcher

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/internal/pkg/filename"
	"github.com/receiptexporter/receiptexporter/internal/pkg/headless"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/sink"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// Browser opens isolated tabs for the render strategy.
type Browser interface {
	NewTab(ctx context.Context, url string) (headless.Tab, error)
}

// Saver persists produced documents.
type Saver interface {
	Save(ctx context.Context, req sink.SaveRequest) (string, error)
}

// Request describes one document to produce.
type Request struct {
	Item     models.WorkItem
	URL      string
	HTML     string
	BaseURL  string
	Strategy models.Strategy // overrides the item's strategy when set
}

// Outcome is the only thing that leaves Fetch: errors are folded into it.
type Outcome struct {
	Success bool
	Error   string
	Path    string
	Bytes   int
}

// Config configures a Fetcher.
type Config struct {
	Client          *http.Client
	Browser         Browser
	Sink            Saver
	UserAgent       string
	Pattern         string
	Conflict        sink.Conflict
	Delays          config.Delays
	FallbackCapture bool
	// ReceiptFromHTML makes the render strategy download the page with the
	// HTTP client and render the markup instead of loading the URL in the tab.
	ReceiptFromHTML bool
}

// Fetcher runs the direct-binary and render-and-print strategies.
type Fetcher struct {
	client          *http.Client
	browser         Browser
	sink            Saver
	userAgent       string
	conflict        sink.Conflict
	delays          config.Delays
	fallbackCapture bool
	receiptFromHTML bool
	sleep           func(time.Duration)
	logger          *log.FieldedLogger

	mu      sync.RWMutex
	pattern string
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Pattern == "" {
		cfg.Pattern = filename.DefaultPattern
	}
	if cfg.Conflict == "" {
		cfg.Conflict = sink.Overwrite
	}

	return &Fetcher{
		client:          cfg.Client,
		browser:         cfg.Browser,
		sink:            cfg.Sink,
		userAgent:       cfg.UserAgent,
		conflict:        cfg.Conflict,
		delays:          cfg.Delays,
		fallbackCapture: cfg.FallbackCapture,
		receiptFromHTML: cfg.ReceiptFromHTML,
		sleep:           time.Sleep,
		pattern:         cfg.Pattern,
		logger: log.NewFieldedLogger(&log.Fields{
			"component": "fetcher",
		}),
	}
}

// SetPattern replaces the filename pattern used for subsequent saves.
func (f *Fetcher) SetPattern(pattern string) {
	if pattern == "" {
		pattern = filename.DefaultPattern
	}

	f.mu.Lock()
	f.pattern = pattern
	f.mu.Unlock()
}

func (f *Fetcher) getPattern() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pattern
}

// Fetch produces and saves one document. It never returns an error: every
// failure ends up in the outcome.
func (f *Fetcher) Fetch(ctx context.Context, req Request) Outcome {
	strategy := req.Strategy
	if strategy == "" {
		strategy = req.Item.Strategy
	}
	if strategy == "" {
		strategy = models.StrategyFor(req.Item.Type)
	}

	logger := f.logger.With(
		"order_id", req.Item.Order.GetDisplayID(),
		"type", req.Item.Type,
		"strategy", strategy,
	)

	var (
		data []byte
		err  error
	)
	switch strategy {
	case models.Direct:
		data, err = f.fetchDirect(ctx, req)
	default:
		data, err = f.fetchRender(ctx, req)
	}
	if err != nil {
		logger.Warn("document fetch failed", "url", req.URL, "error", err)
		return Outcome{Error: err.Error()}
	}

	name := filename.Format(f.getPattern(), &req.Item.Order, req.Item.GetLabel())
	path, err := f.sink.Save(ctx, sink.SaveRequest{
		Data:     data,
		Filename: name,
		Conflict: f.conflict,
	})
	if err != nil {
		logger.Error("document save failed", "filename", name, "error", err)
		return Outcome{Error: err.Error()}
	}

	logger.Info("document saved", "path", path)

	return Outcome{Success: true, Path: path, Bytes: len(data)}
}
