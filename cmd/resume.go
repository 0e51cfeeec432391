package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/internal/pkg/controler"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue an interrupted download queue",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("viper config is nil")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.NewFieldedLogger(&log.Fields{
			"component": "cmd.resume",
		})

		u, detach := newUI()
		defer detach()

		// The persisted items may need any strategy.
		p, err := controler.New(cfg, controler.Options{Browser: true, UI: u})
		if err != nil {
			return err
		}
		defer p.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go controler.WatchSignals(ctx, cancel)
		config.WatchConfig()

		err = p.Run(ctx, func(ctx context.Context) error {
			cp, err := p.Orchestrator.Resume(ctx)
			if err != nil {
				return err
			}
			logger.Info("download queue resumed", "index", cp.Index, "total", cp.Total)

			status, err := p.Wait(ctx)
			if err != nil {
				return err
			}
			logger.Info("download queue finished", "success", status.Success, "fail", status.Fail)
			return nil
		})

		return finishRun(err, logger)
	},
}
