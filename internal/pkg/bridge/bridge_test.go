package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/receiptexporter/receiptexporter/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startPair(t *testing.T) (*Endpoint, *Endpoint, func()) {
	t.Helper()

	page := NewEndpoint("page", 4)
	worker := NewEndpoint("worker", 4)
	Pipe(page, worker)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, e := range []*Endpoint{page, worker} {
		wg.Add(1)
		go func(e *Endpoint) {
			defer wg.Done()
			e.Run(ctx)
		}(e)
	}

	require.Eventually(t, func() bool {
		return page.Running() && worker.Running()
	}, time.Second, time.Millisecond)

	return page, worker, func() {
		cancel()
		wg.Wait()
	}
}

func TestRequestReplyRoundTrip(t *testing.T) {
	page, worker, stop := startPair(t)
	defer stop()

	worker.Handle(ActionFetchAndSave, func(_ context.Context, msg *Message) *Reply {
		var req FetchAndSave
		if err := msg.Decode(&req); err != nil {
			return Fail(err)
		}
		return OK(ItemComplete{Success: true, Path: req.Item.Order.OrderID + ".pdf"})
	})

	msg, err := NewMessage(ActionFetchAndSave, FetchAndSave{
		Item: models.NewWorkItem(models.Order{OrderID: "12345-01"}, models.Invoice),
		URL:  "https://example.com/invoice",
	})
	require.NoError(t, err)

	reply, err := page.Request(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, reply.Success)

	var result ItemComplete
	require.NoError(t, reply.Decode(&result))
	assert.Equal(t, "12345-01.pdf", result.Path)
}

func TestLegacyActionsReachFetchAndSave(t *testing.T) {
	page, worker, stop := startPair(t)
	defer stop()

	seen := make(chan Action, 3)
	worker.Handle(ActionFetchAndSave, func(_ context.Context, msg *Message) *Reply {
		seen <- msg.Action
		return OK(nil)
	})

	for _, action := range []Action{ActionDownloadBinary, ActionCaptureURL, ActionConvertHTMLToPDF} {
		msg, err := NewMessage(action, nil)
		require.NoError(t, err)

		reply, err := page.Request(context.Background(), msg)
		require.NoError(t, err)
		assert.True(t, reply.Success)
		assert.Equal(t, action, <-seen)
	}

	strategy, ok := LegacyStrategy(ActionDownloadBinary)
	assert.True(t, ok)
	assert.Equal(t, models.Direct, strategy)

	_, ok = LegacyStrategy(ActionFetchAndSave)
	assert.False(t, ok)
}

func TestRequestWithoutHandler(t *testing.T) {
	page, _, stop := startPair(t)
	defer stop()

	msg, err := NewMessage(ActionRefreshSpreadsheet, nil)
	require.NoError(t, err)

	_, err = page.Request(context.Background(), msg)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestNotDeliveredWithoutRunningPeer(t *testing.T) {
	page := NewEndpoint("page", 1)
	worker := NewEndpoint("worker", 1)

	msg, err := NewMessage(ActionUpdateStatus, Status{Summary: "done"})
	require.NoError(t, err)

	assert.ErrorIs(t, page.Notify(msg), ErrNotConnected)

	Pipe(page, worker)
	assert.ErrorIs(t, page.Notify(msg), ErrNotDelivered)

	_, err = page.Request(context.Background(), msg)
	assert.ErrorIs(t, err, ErrNotDelivered)
}

func TestRequestInconclusiveWhenPeerStops(t *testing.T) {
	page := NewEndpoint("page", 1)
	worker := NewEndpoint("worker", 1)
	Pipe(page, worker)

	ctx, cancel := context.WithCancel(context.Background())
	worker.Handle(ActionReloadSettings, func(ctx context.Context, _ *Message) *Reply {
		<-ctx.Done()
		return OK(nil)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	require.Eventually(t, worker.Running, time.Second, time.Millisecond)

	msg, err := NewMessage(ActionReloadSettings, nil)
	require.NoError(t, err)

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer reqCancel()

	_, err = page.Request(reqCtx, msg)
	assert.ErrorIs(t, err, ErrNotDelivered)

	cancel()
	<-done

	assert.ErrorIs(t, worker.Run(context.Background()), ErrAlreadyRunning)
}

func TestNotifyInboxFull(t *testing.T) {
	page := NewEndpoint("page", 1)
	worker := NewEndpoint("worker", 1)
	Pipe(page, worker)

	block := make(chan struct{})
	worker.Handle(ActionUpdateStatus, func(context.Context, *Message) *Reply {
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	require.Eventually(t, worker.Running, time.Second, time.Millisecond)

	msg, err := NewMessage(ActionUpdateStatus, Status{})
	require.NoError(t, err)

	// First message is taken by the loop, second fills the inbox.
	require.NoError(t, page.Notify(msg))
	require.Eventually(t, func() bool { return len(worker.inbox) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, page.Notify(msg))
	assert.ErrorIs(t, page.Notify(msg), ErrNotDelivered)

	close(block)
	cancel()
	<-done
}
