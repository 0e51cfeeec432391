// Package worker is the privileged side of the bridge: it owns the HTTP
// client, the browser and the sink, and serves fetch_and_save one item at a
// time.
package worker

import (
	"context"
	"time"

	"github.com/receiptexporter/receiptexporter/internal/pkg/bridge"
	"github.com/receiptexporter/receiptexporter/internal/pkg/fetcher"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/stats"
)

// Fetcher produces and saves one document.
type Fetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) fetcher.Outcome
}

// CategorySource re-imports the category labels.
type CategorySource interface {
	Refresh(ctx context.Context) ([]string, error)
}

// Config holds the dependencies of a Worker.
type Config struct {
	Fetcher    Fetcher
	Categories CategorySource
	// Reload re-reads the settings. Listeners registered on the config
	// package pick the new values up.
	Reload func() error
}

// Worker serves the worker-side actions.
type Worker struct {
	endpoint   *bridge.Endpoint
	fetcher    Fetcher
	categories CategorySource
	reload     func() error
	done       chan bridge.Status
	logger     *log.FieldedLogger
}

// New creates a Worker bound to endpoint and registers its handlers.
func New(endpoint *bridge.Endpoint, cfg Config) *Worker {
	w := &Worker{
		endpoint:   endpoint,
		fetcher:    cfg.Fetcher,
		categories: cfg.Categories,
		reload:     cfg.Reload,
		done:       make(chan bridge.Status, 1),
		logger: log.NewFieldedLogger(&log.Fields{
			"component": "worker",
		}),
	}

	endpoint.Handle(bridge.ActionFetchAndSave, w.handleFetchAndSave)
	endpoint.Handle(bridge.ActionReloadSettings, w.handleReloadSettings)
	endpoint.Handle(bridge.ActionRefreshSpreadsheet, w.handleRefreshSpreadsheet)
	endpoint.Handle(bridge.ActionUpdateStatus, w.handleUpdateStatus)

	return w
}

// Done receives the final status of a queue run.
func (w *Worker) Done() <-chan bridge.Status {
	return w.done
}

func (w *Worker) handleFetchAndSave(ctx context.Context, msg *bridge.Message) *bridge.Reply {
	var req bridge.FetchAndSave
	if err := msg.Decode(&req); err != nil {
		w.logger.Error("invalid fetch request", "action", msg.Action, "err", err)
		w.complete(bridge.ItemComplete{Error: err.Error()})
		return bridge.Fail(err)
	}

	strategy := req.Strategy
	if legacy, ok := bridge.LegacyStrategy(msg.Action); ok && strategy == "" {
		strategy = legacy
	}

	start := time.Now()
	outcome := w.fetcher.Fetch(ctx, fetcher.Request{
		Item:     req.Item,
		URL:      req.URL,
		HTML:     req.HTML,
		BaseURL:  req.BaseURL,
		Strategy: strategy,
	})
	took := time.Since(start)

	if outcome.Success {
		stats.DocumentSucceeded(string(req.Item.Type), outcome.Bytes, took)
	} else {
		stats.DocumentFailed(string(req.Item.Type), took)
	}

	result := bridge.ItemComplete{
		Success: outcome.Success,
		Error:   outcome.Error,
		Path:    outcome.Path,
		Bytes:   outcome.Bytes,
	}
	w.complete(result)

	return bridge.OK(result)
}

// complete reports the outcome to the queue side. Delivery is best effort:
// a lost completion is recovered by resume.
func (w *Worker) complete(result bridge.ItemComplete) {
	msg, err := bridge.NewMessage(bridge.ActionItemComplete, result)
	if err == nil {
		err = w.endpoint.Notify(msg)
	}
	if err != nil {
		w.logger.Warn("unable to report item completion", "err", err)
	}
}

func (w *Worker) handleReloadSettings(ctx context.Context, msg *bridge.Message) *bridge.Reply {
	if w.reload == nil {
		return bridge.OK(nil)
	}

	if err := w.reload(); err != nil {
		w.logger.Error("unable to reload settings", "err", err)
		return bridge.Fail(err)
	}

	w.logger.Info("settings reloaded")
	return bridge.OK(nil)
}

func (w *Worker) handleRefreshSpreadsheet(ctx context.Context, msg *bridge.Message) *bridge.Reply {
	if w.categories == nil {
		return bridge.OK(bridge.Categories{Values: []string{}})
	}

	values, err := w.categories.Refresh(ctx)
	if err != nil {
		w.logger.Error("unable to refresh the category sheet", "err", err)
		return bridge.Fail(err)
	}

	w.logger.Info("category sheet refreshed", "values", len(values))
	return bridge.OK(bridge.Categories{Values: values})
}

func (w *Worker) handleUpdateStatus(ctx context.Context, msg *bridge.Message) *bridge.Reply {
	var status bridge.Status
	if err := msg.Decode(&status); err != nil {
		return bridge.Fail(err)
	}

	w.logger.Info("queue status", "summary", status.Summary)

	select {
	case w.done <- status:
	default:
	}

	return bridge.OK(nil)
}
