// Package controler assembles the queue side and the worker side of a run and
// drives them until the queue completes or the run is cancelled.
package controler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/philippgille/gokv"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/receiptexporter/receiptexporter/internal/pkg/bridge"
	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/internal/pkg/controler/watchers"
	"github.com/receiptexporter/receiptexporter/internal/pkg/fetcher"
	"github.com/receiptexporter/receiptexporter/internal/pkg/headless"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/queue"
	"github.com/receiptexporter/receiptexporter/internal/pkg/sink"
	"github.com/receiptexporter/receiptexporter/internal/pkg/source"
	"github.com/receiptexporter/receiptexporter/internal/pkg/stats"
	"github.com/receiptexporter/receiptexporter/internal/pkg/store"
	"github.com/receiptexporter/receiptexporter/internal/pkg/ui"
	"github.com/receiptexporter/receiptexporter/internal/pkg/worker"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// Options selects the optional parts of a pipeline.
type Options struct {
	// Browser launches Chromium. Required by the render strategy, the
	// fallback capture and the live order history.
	Browser bool
	UI      ui.UI
	Fs      afero.Fs
}

// Pipeline is one assembled run: both bridge endpoints and everything the
// worker side owns.
type Pipeline struct {
	Store        gokv.Store
	Sink         *sink.Sink
	Browser      *headless.Browser
	Client       *http.Client
	Fetcher      *fetcher.Fetcher
	Orchestrator *queue.Orchestrator
	Worker       *worker.Worker
	Sheet        *source.Sheet

	queueSide   *bridge.Endpoint
	workerSide  *bridge.Endpoint
	unsubscribe func()
	logger      *log.FieldedLogger
}

// New assembles a pipeline from cfg.
func New(cfg *config.Config, opts Options) (_ *Pipeline, err error) {
	logger := log.NewFieldedLogger(&log.Fields{
		"component": "controler.pipeline",
	})

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.UI == nil {
		opts.UI = ui.Nop{}
	}

	for _, dir := range []string{cfg.StateDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("can't create directory", "dir", dir, "err", err.Error())
			return nil, err
		}
	}

	if err := watchers.CheckDiskUsage(cfg.OutputDir, cfg.MinSpaceRequired); err != nil {
		logger.Error("can't start the run", "err", err.Error())
		return nil, err
	}

	if err := stats.Init(cfg.PrometheusPrefix, cfg.RunID); err != nil && !errors.Is(err, stats.ErrStatsAlreadyInitialized) {
		logger.Error("error initializing stats", "err", err.Error())
		return nil, err
	}

	p := &Pipeline{logger: logger}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	p.Store, err = store.Open(cfg.StateDir)
	if err != nil {
		logger.Error("unable to open the state store", "err", err.Error())
		return nil, err
	}

	p.Sink = sink.New(sink.Config{
		Fs:        opts.Fs,
		OutputDir: cfg.OutputDir,
		Normalize: !cfg.NoPDFNormalize,
	})

	p.Client, err = fetcher.NewClient()
	if err != nil {
		return nil, err
	}

	cookies := fetcher.ParseCookieHeader(cfg.Cookies)
	if err := fetcher.SeedCookies(p.Client, cfg.BaseURL, cookies); err != nil {
		logger.Warn("unable to seed configured cookies", "err", err.Error())
	}

	var browser fetcher.Browser
	if opts.Browser {
		p.Browser, err = headless.Start(headless.Config{
			Bin:         cfg.HeadlessBrowserPath,
			UserDataDir: cfg.HeadlessUserDataDir,
			UserMode:    cfg.HeadlessUserMode,
			Headful:     cfg.HeadlessHeadful,
			Stealth:     cfg.HeadlessStealth,
			NoSandbox:   cfg.HeadlessNoSandbox,
		})
		if err != nil {
			logger.Error("unable to start the headless browser", "err", err.Error())
			return nil, err
		}
		browser = p.Browser

		if err := p.shareSession(cfg.BaseURL, cookies); err != nil {
			logger.Warn("unable to share the browser session", "err", err.Error())
		}
	}

	p.Fetcher = fetcher.New(fetcher.Config{
		Client:          p.Client,
		Browser:         browser,
		Sink:            p.Sink,
		UserAgent:       cfg.UserAgent,
		Pattern:         cfg.FilenamePattern,
		Conflict:        sink.Conflict(cfg.ConflictAction),
		Delays:          cfg.Delays,
		FallbackCapture: cfg.FallbackCapture && browser != nil,
		ReceiptFromHTML: cfg.ReceiptSource == "html",
	})

	p.unsubscribe = config.Subscribe(func(s config.Settings) {
		p.Fetcher.SetPattern(s.FilenamePattern)
	})

	p.Sheet = source.NewSheet(source.SheetConfig{
		URL:       cfg.SpreadsheetURL,
		SheetName: cfg.SheetName,
		Column:    cfg.ColumnName,
		HeaderRow: cfg.HeaderRow,
	}, http.DefaultClient, p.Store)

	p.queueSide = bridge.NewEndpoint("queue", bridge.DefaultInboxSize)
	p.workerSide = bridge.NewEndpoint("worker", bridge.DefaultInboxSize)
	bridge.Pipe(p.queueSide, p.workerSide)

	p.Orchestrator = queue.New(queue.Config{
		Store:    p.Store,
		Notifier: p.queueSide,
		Reporter: opts.UI,
		BaseURL:  cfg.BaseURL,
		Delays:   cfg.Delays,
	})
	p.Orchestrator.Register(p.queueSide)

	p.Worker = worker.New(p.workerSide, worker.Config{
		Fetcher:    p.Fetcher,
		Categories: p.Sheet,
		Reload:     config.Reload,
	})

	return p, nil
}

// shareSession copies the browser session cookies into the HTTP client and
// the configured cookies into the browser.
func (p *Pipeline) shareSession(origin string, configured []*http.Cookie) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(configured) > 0 {
		if err := p.Browser.SetCookies(ctx, origin, configured); err != nil {
			return err
		}
	}

	cookies, err := p.Browser.Cookies(ctx)
	if err != nil {
		return err
	}

	return fetcher.SeedCookies(p.Client, origin, cookies)
}

// Run starts both endpoints and calls drive once they accept messages. The
// endpoints stop when drive returns.
func (p *Pipeline) Run(ctx context.Context, drive func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.queueSide.Run(gctx) })
	g.Go(func() error { return p.workerSide.Run(gctx) })
	g.Go(func() error {
		defer cancel()

		for !p.queueSide.Running() || !p.workerSide.Running() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-time.After(time.Millisecond):
			}
		}

		return drive(gctx)
	})

	return g.Wait()
}

// StartQueue asks the queue side to build and start a queue for orders.
func (p *Pipeline) StartQueue(ctx context.Context, orders []models.Order, settings config.Settings) (int, error) {
	reply, err := p.request(ctx, p.workerSide, bridge.ActionStartQueue, bridge.StartQueue{
		Orders:   orders,
		Settings: settings,
	})
	if err != nil {
		return 0, err
	}

	var result bridge.StartQueueResult
	if err := reply.Decode(&result); err != nil {
		return 0, err
	}
	return result.Total, nil
}

// SelectedOrders returns the orders the queue side holds as the selection.
func (p *Pipeline) SelectedOrders(ctx context.Context) ([]models.Order, error) {
	reply, err := p.request(ctx, p.workerSide, bridge.ActionGetSelectedOrders, nil)
	if err != nil {
		return nil, err
	}

	var selected bridge.SelectedOrders
	if err := reply.Decode(&selected); err != nil {
		return nil, err
	}
	return selected.Orders, nil
}

// RefreshCategories asks the worker to re-import the category sheet.
func (p *Pipeline) RefreshCategories(ctx context.Context) ([]string, error) {
	reply, err := p.request(ctx, p.queueSide, bridge.ActionRefreshSpreadsheet, nil)
	if err != nil {
		return nil, err
	}

	var categories bridge.Categories
	if err := reply.Decode(&categories); err != nil {
		return nil, err
	}
	return categories.Values, nil
}

// ReloadSettings asks the worker to re-read the configuration.
func (p *Pipeline) ReloadSettings(ctx context.Context) error {
	_, err := p.request(ctx, p.queueSide, bridge.ActionReloadSettings, nil)
	return err
}

// Wait blocks until the queue reports its final status.
func (p *Pipeline) Wait(ctx context.Context) (bridge.Status, error) {
	select {
	case status := <-p.Worker.Done():
		return status, nil
	case <-ctx.Done():
		return bridge.Status{}, ctx.Err()
	}
}

func (p *Pipeline) request(ctx context.Context, from *bridge.Endpoint, action bridge.Action, payload any) (*bridge.Reply, error) {
	msg, err := bridge.NewMessage(action, payload)
	if err != nil {
		return nil, err
	}

	reply, err := from.Request(ctx, msg)
	if err != nil {
		return nil, err
	}
	if !reply.Success {
		return nil, fmt.Errorf("%s: %s", action, reply.Error)
	}
	return reply, nil
}

// Close releases the browser and the store.
func (p *Pipeline) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	if p.Browser != nil {
		p.Browser.Close()
	}
	if p.Store != nil {
		if err := p.Store.Close(); err != nil {
			p.logger.Warn("unable to close the state store", "err", err.Error())
		}
	}
}
