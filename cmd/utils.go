package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/stats"
	"github.com/receiptexporter/receiptexporter/internal/pkg/ui"
)

// newUI returns the live progress display, or a no-op one when progress is
// disabled. The returned function restores the log output.
func newUI() (ui.UI, func()) {
	if cfg.NoProgress {
		return ui.Nop{}, func() {}
	}

	live := ui.NewLive(os.Stdout)
	live.Attach()
	return live, live.Detach
}

// finishRun prints the run stats, writes the metrics file and turns an
// interruption into a clean exit.
func finishRun(err error, logger *log.FieldedLogger) error {
	if !cfg.NoProgress {
		fmt.Println("Run stats:")
		fmt.Print(ui.StatsTable(stats.GetMap()))
	}

	if path := metricsFile(); path != "" {
		if err := stats.WriteTextfile(path); err != nil {
			logger.Error("unable to write the metrics file", "path", path, "err", err.Error())
		} else {
			logger.Info("metrics written", "path", path)
		}
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("run interrupted, the queue was kept. Use `resume` to continue")
		return nil
	}

	return err
}

func metricsFile() string {
	if cfg.MetricsFile != "" {
		return cfg.MetricsFile
	}
	if cfg.Prometheus {
		return filepath.Join(cfg.StateDir, "metrics.prom")
	}
	return ""
}
