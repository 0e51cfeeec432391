package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/receiptexporter/receiptexporter/internal/pkg/bridge"
	"github.com/receiptexporter/receiptexporter/internal/pkg/fetcher"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFetcher struct {
	mu       sync.Mutex
	requests []fetcher.Request
	outcome  fetcher.Outcome
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.Request) fetcher.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.outcome
}

func (f *fakeFetcher) last() fetcher.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeCategories struct {
	values []string
	err    error
}

func (c *fakeCategories) Refresh(context.Context) ([]string, error) {
	return c.values, c.err
}

type harness struct {
	queue     *bridge.Endpoint
	worker    *Worker
	completed chan bridge.ItemComplete
	stop      func()
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	queueSide := bridge.NewEndpoint("queue", 4)
	workerSide := bridge.NewEndpoint("worker", 4)
	bridge.Pipe(queueSide, workerSide)

	h := &harness{
		queue:     queueSide,
		worker:    New(workerSide, cfg),
		completed: make(chan bridge.ItemComplete, 4),
	}

	queueSide.Handle(bridge.ActionItemComplete, func(_ context.Context, msg *bridge.Message) *bridge.Reply {
		var res bridge.ItemComplete
		if err := msg.Decode(&res); err != nil {
			return bridge.Fail(err)
		}
		h.completed <- res
		return bridge.OK(nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, e := range []*bridge.Endpoint{queueSide, workerSide} {
		wg.Add(1)
		go func(e *bridge.Endpoint) {
			defer wg.Done()
			e.Run(ctx)
		}(e)
	}

	require.Eventually(t, func() bool {
		return queueSide.Running() && workerSide.Running()
	}, time.Second, time.Millisecond)

	h.stop = func() {
		cancel()
		wg.Wait()
	}

	return h
}

func (h *harness) awaitCompletion(t *testing.T) bridge.ItemComplete {
	t.Helper()
	select {
	case res := <-h.completed:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no download_item_complete received")
	}
	return bridge.ItemComplete{}
}

func TestFetchAndSaveReportsCompletion(t *testing.T) {
	f := &fakeFetcher{outcome: fetcher.Outcome{Success: true, Path: "/out/a.pdf", Bytes: 42}}
	h := newHarness(t, Config{Fetcher: f})
	defer h.stop()

	item := models.NewWorkItem(models.Order{OrderID: "100-01", BaseOrderID: "100"}, models.Receipt)
	msg, err := bridge.NewMessage(bridge.ActionFetchAndSave, bridge.FetchAndSave{
		Item:     item,
		URL:      "https://shop.example/receipt",
		Strategy: item.Strategy,
	})
	require.NoError(t, err)
	require.NoError(t, h.queue.Notify(msg))

	res := h.awaitCompletion(t)
	assert.True(t, res.Success)
	assert.Equal(t, "/out/a.pdf", res.Path)
	assert.Equal(t, 42, res.Bytes)

	req := f.last()
	assert.Equal(t, models.Render, req.Strategy)
	assert.Equal(t, "https://shop.example/receipt", req.URL)
	assert.Equal(t, item, req.Item)
}

func TestLegacyActionSelectsStrategy(t *testing.T) {
	f := &fakeFetcher{outcome: fetcher.Outcome{Success: true}}
	h := newHarness(t, Config{Fetcher: f})
	defer h.stop()

	for action, want := range map[bridge.Action]models.Strategy{
		bridge.ActionDownloadBinary:   models.Direct,
		bridge.ActionCaptureURL:       models.Render,
		bridge.ActionConvertHTMLToPDF: models.Render,
	} {
		msg, err := bridge.NewMessage(action, bridge.FetchAndSave{
			Item: models.NewWorkItem(models.Order{OrderID: "1-01"}, models.Invoice),
			URL:  "https://shop.example/doc",
		})
		require.NoError(t, err)

		reply, err := h.queue.Request(context.Background(), msg)
		require.NoError(t, err)
		assert.True(t, reply.Success)
		assert.Equal(t, want, f.last().Strategy, action)

		h.awaitCompletion(t)
	}
}

func TestFetchFailureIsReportedAsFailure(t *testing.T) {
	f := &fakeFetcher{outcome: fetcher.Outcome{Error: "HTTP 404"}}
	h := newHarness(t, Config{Fetcher: f})
	defer h.stop()

	msg, err := bridge.NewMessage(bridge.ActionFetchAndSave, bridge.FetchAndSave{
		Item: models.NewWorkItem(models.Order{OrderID: "1-01"}, models.DeliverySlip),
		URL:  "https://shop.example/doc",
	})
	require.NoError(t, err)
	require.NoError(t, h.queue.Notify(msg))

	res := h.awaitCompletion(t)
	assert.False(t, res.Success)
	assert.Equal(t, "HTTP 404", res.Error)
}

func TestInvalidPayloadStillCompletes(t *testing.T) {
	h := newHarness(t, Config{Fetcher: &fakeFetcher{}})
	defer h.stop()

	require.NoError(t, h.queue.Notify(&bridge.Message{ID: "x", Action: bridge.ActionFetchAndSave, Payload: []byte("{")}))

	res := h.awaitCompletion(t)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestReloadSettings(t *testing.T) {
	calls := 0
	reloadErr := error(nil)
	h := newHarness(t, Config{Fetcher: &fakeFetcher{}, Reload: func() error {
		calls++
		return reloadErr
	}})
	defer h.stop()

	msg, _ := bridge.NewMessage(bridge.ActionReloadSettings, nil)
	reply, err := h.queue.Request(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, 1, calls)

	reloadErr = errors.New("bad yaml")
	msg, _ = bridge.NewMessage(bridge.ActionReloadSettings, nil)
	reply, err = h.queue.Request(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "bad yaml", reply.Error)
}

func TestRefreshSpreadsheet(t *testing.T) {
	h := newHarness(t, Config{Fetcher: &fakeFetcher{}, Categories: &fakeCategories{values: []string{"R&D", "Office"}}})
	defer h.stop()

	msg, _ := bridge.NewMessage(bridge.ActionRefreshSpreadsheet, nil)
	reply, err := h.queue.Request(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, reply.Success)

	var categories bridge.Categories
	require.NoError(t, reply.Decode(&categories))
	assert.Equal(t, []string{"R&D", "Office"}, categories.Values)
}

func TestUpdateStatusSignalsDone(t *testing.T) {
	h := newHarness(t, Config{Fetcher: &fakeFetcher{}})
	defer h.stop()

	msg, _ := bridge.NewMessage(bridge.ActionUpdateStatus, bridge.Status{Summary: "完了: 2件 (失敗: 0件)", Success: 2})
	require.NoError(t, h.queue.Notify(msg))

	select {
	case status := <-h.worker.Done():
		assert.Equal(t, 2, status.Success)
		assert.Equal(t, "完了: 2件 (失敗: 0件)", status.Summary)
	case <-time.After(2 * time.Second):
		t.Fatal("no status received")
	}
}
