// Package queue drives the download queue: it expands the selected orders into
// work items, hands them one at a time to the worker over the bridge and
// advances a checkpoint persisted after every transition.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/philippgille/gokv"

	"github.com/receiptexporter/receiptexporter/internal/pkg/bridge"
	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/stats"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// Notifier sends a message to the worker without waiting for a reply.
type Notifier interface {
	Notify(msg *bridge.Message) error
}

// Reporter shows the queue progress to the user.
type Reporter interface {
	Progress(index, total int, status, detail string)
	Done(summary string)
}

type nopReporter struct{}

func (nopReporter) Progress(int, int, string, string) {}
func (nopReporter) Done(string)                       {}

// Config holds the dependencies of an Orchestrator.
type Config struct {
	Store    gokv.Store
	Notifier Notifier
	Reporter Reporter
	BaseURL  string
	Delays   config.Delays
}

// Orchestrator is the queue state machine. Every transition reads the
// checkpoint from the store, never from memory.
type Orchestrator struct {
	store    gokv.Store
	notifier Notifier
	reporter Reporter
	baseURL  string
	delays   config.Delays
	sleep    func(time.Duration)

	mu sync.Mutex

	selectionMu sync.RWMutex
	selection   []models.Order

	logger *log.FieldedLogger
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	return &Orchestrator{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		reporter: reporter,
		baseURL:  baseURL,
		delays:   cfg.Delays,
		sleep:    time.Sleep,
		logger: log.NewFieldedLogger(&log.Fields{
			"component": "queue",
		}),
	}
}

// SetSelection stores the orders served to get_selected_orders.
func (o *Orchestrator) SetSelection(orders []models.Order) {
	o.selectionMu.Lock()
	defer o.selectionMu.Unlock()
	o.selection = append([]models.Order(nil), orders...)
}

// Selection returns the current selection.
func (o *Orchestrator) Selection() []models.Order {
	o.selectionMu.RLock()
	defer o.selectionMu.RUnlock()
	return append([]models.Order(nil), o.selection...)
}

// Start builds the queue from orders, persists it and dispatches the first
// item. A queue that is already persisted is never replaced.
func (o *Orchestrator) Start(ctx context.Context, orders []models.Order, settings config.Settings) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing, err := loadCheckpoint(o.store)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: %d/%d done", ErrQueueRunning, existing.Index, existing.Total)
	}

	items, err := Build(orders, settings)
	if err != nil {
		return 0, err
	}

	cp := &models.Checkpoint{
		Items: items,
		Total: len(items),
	}
	if err := saveCheckpoint(o.store, cp); err != nil {
		return 0, err
	}
	if err := saveSettings(o.store, settings); err != nil {
		o.logger.Warn("unable to persist queue settings", "err", err)
	}

	o.logger.Info("download queue started", "orders", len(orders), "items", len(items))

	return len(items), o.dispatch(ctx)
}

// Resume re-dispatches the item at the persisted index. An item whose result
// was lost is sent again.
func (o *Orchestrator) Resume(ctx context.Context) (*models.Checkpoint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp, err := loadCheckpoint(o.store)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, ErrNoQueue
	}

	o.logger.Info("resuming download queue", "index", cp.Index, "total", cp.Total, "success", cp.Success, "fail", cp.Fail)

	return cp, o.dispatch(ctx)
}

// OnItemComplete records the outcome of the in-flight item and dispatches the
// next one.
func (o *Orchestrator) OnItemComplete(ctx context.Context, success bool, errText string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp, err := loadCheckpoint(o.store)
	if err != nil {
		return err
	}
	if cp == nil {
		return ErrNoQueue
	}
	if cp.Current == nil || cp.Done() {
		return ErrNoItemInFlight
	}

	item := cp.Current
	if success {
		cp.Success++
		o.logger.Info("document saved", "type", item.Type, "id", item.GetIdentifier())
	} else {
		cp.Fail++
		o.logger.Warn("document failed", "type", item.Type, "id", item.GetIdentifier(), "err", errText)
	}
	cp.Current = nil
	cp.Index++

	if err := saveCheckpoint(o.store, cp); err != nil {
		return err
	}

	o.sleep(o.delays.AfterSuccess)

	return o.dispatch(ctx)
}

// Status returns the persisted checkpoint.
func (o *Orchestrator) Status() (*models.Checkpoint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp, err := loadCheckpoint(o.store)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, ErrNoQueue
	}
	return cp, nil
}

// dispatch sends the item at the current index, failing and advancing past
// items that cannot be handed to the worker. Callers hold o.mu.
func (o *Orchestrator) dispatch(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cp, err := loadCheckpoint(o.store)
		if err != nil {
			return err
		}
		if cp == nil {
			return ErrNoQueue
		}
		if cp.Done() {
			return o.finish(cp)
		}

		item := cp.Items[cp.Index]
		cp.Current = &item
		if err := saveCheckpoint(o.store, cp); err != nil {
			return err
		}

		o.reporter.Progress(cp.Index+1, cp.Total,
			fmt.Sprintf("処理中... (%d/%d)", cp.Index+1, cp.Total),
			fmt.Sprintf("%s - %s", item.Order.Date, item.Order.GetDisplayID()))

		err = o.send(&item)
		if err == nil {
			stats.ItemDispatchedIncr(string(item.Type))
			return nil
		}

		o.logger.Error("unable to send item to the worker", "type", item.Type, "id", item.GetIdentifier(), "err", err)

		cp.Fail++
		cp.Index++
		cp.Current = nil
		if err := saveCheckpoint(o.store, cp); err != nil {
			return err
		}

		o.sleep(o.delays.AfterFailure)
	}
}

func (o *Orchestrator) send(item *models.WorkItem) error {
	msg, err := bridge.NewMessage(bridge.ActionFetchAndSave, bridge.FetchAndSave{
		Item:     *item,
		URL:      DocumentURL(o.baseURL, item),
		BaseURL:  o.baseURL,
		Strategy: item.Strategy,
	})
	if err != nil {
		return err
	}

	return o.notifier.Notify(msg)
}

func (o *Orchestrator) finish(cp *models.Checkpoint) error {
	summary := fmt.Sprintf("完了: %d件 (失敗: %d件)", cp.Success, cp.Fail)

	o.logger.Info("download queue completed", "success", cp.Success, "fail", cp.Fail)
	o.reporter.Done(summary)

	msg, err := bridge.NewMessage(bridge.ActionUpdateStatus, bridge.Status{
		Summary: summary,
		Success: cp.Success,
		Fail:    cp.Fail,
	})
	if err == nil {
		err = o.notifier.Notify(msg)
	}
	if err != nil {
		o.logger.Warn("unable to send final status", "err", err)
	}

	return clearCheckpoint(o.store)
}

// Register installs the queue-side handlers on e.
func (o *Orchestrator) Register(e *bridge.Endpoint) {
	e.Handle(bridge.ActionStartQueue, func(ctx context.Context, msg *bridge.Message) *bridge.Reply {
		var req bridge.StartQueue
		if err := msg.Decode(&req); err != nil {
			return bridge.Fail(err)
		}

		total, err := o.Start(ctx, req.Orders, req.Settings)
		if err != nil && total == 0 {
			return bridge.Fail(err)
		}
		if err != nil {
			o.logger.Warn("download queue interrupted", "err", err)
		}

		return bridge.OK(bridge.StartQueueResult{Total: total})
	})

	e.Handle(bridge.ActionGetSelectedOrders, func(ctx context.Context, msg *bridge.Message) *bridge.Reply {
		return bridge.OK(bridge.SelectedOrders{Orders: o.Selection()})
	})

	e.Handle(bridge.ActionItemComplete, func(ctx context.Context, msg *bridge.Message) *bridge.Reply {
		var res bridge.ItemComplete
		if err := msg.Decode(&res); err != nil {
			o.logger.Error("invalid completion message", "err", err)
			return bridge.Fail(err)
		}

		err := o.OnItemComplete(ctx, res.Success, res.Error)
		if errors.Is(err, ErrNoItemInFlight) {
			o.logger.Warn("ignoring completion with no item in flight")
			return bridge.Fail(err)
		}
		if err != nil {
			o.logger.Error("unable to advance the queue", "err", err)
			return bridge.Fail(err)
		}

		return bridge.OK(nil)
	})
}
