package controler

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

// WatchSignals cancels the run on SIGINT or SIGTERM. The persisted queue is
// left in place so the run can be resumed. A second signal forces the exit.
func WatchSignals(ctx context.Context, cancel context.CancelFunc) {
	logger := log.NewFieldedLogger(&log.Fields{
		"component": "controler.signalWatcher",
	})

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	select {
	case <-ctx.Done():
		return
	case <-signalChan:
		logger.Info("received shutdown signal, stopping after the current step. Use `resume` to continue")
		// Catch a second signal to force exit
		go func() {
			<-signalChan
			logger.Info("received second shutdown signal, forcing exit...")
			os.Exit(1)
		}()

		cancel()
	}
}
