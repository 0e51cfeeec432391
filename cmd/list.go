package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/sink"
	"github.com/receiptexporter/receiptexporter/internal/pkg/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the saved documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := sink.New(sink.Config{
			Fs:        afero.NewOsFs(),
			OutputDir: cfg.OutputDir,
		})

		entries, err := s.List()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("No documents in %s\n", s.Root())
			return nil
		}

		fmt.Print(ui.ListTable(entries))
		return nil
	},
}
