package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/queue"
	"github.com/receiptexporter/receiptexporter/internal/pkg/store"
	"github.com/receiptexporter/receiptexporter/internal/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted download queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.StateDir)
		if err != nil {
			return err
		}
		defer s.Close()

		cp, err := queue.New(queue.Config{Store: s}).Status()
		if errors.Is(err, queue.ErrNoQueue) {
			fmt.Println("No download queue.")
			return nil
		} else if err != nil {
			return err
		}

		fmt.Println("Download queue:")
		fmt.Print(ui.StatusTable(cp))

		if settings, found, err := queue.LoadSettings(s); err == nil && found {
			fmt.Printf("  - Pattern: %s\n", settings.FilenamePattern)
		}

		return nil
	},
}
