package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/controler"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show the categories of the category sheet",
		Long:  "Shows the categories of the configured spreadsheet. The list is cached for five minutes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := controler.New(cfg, controler.Options{})
			if err != nil {
				return err
			}
			defer p.Close()

			categories, err := p.Sheet.Categories(context.Background())
			if err != nil {
				return err
			}

			printCategories(categories)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Re-import the category sheet, bypassing the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := controler.New(cfg, controler.Options{})
			if err != nil {
				return err
			}
			defer p.Close()

			return p.Run(context.Background(), func(ctx context.Context) error {
				categories, err := p.RefreshCategories(ctx)
				if err != nil {
					return err
				}

				printCategories(categories)
				return nil
			})
		},
	})

	return cmd
}

func printCategories(categories []string) {
	if len(categories) == 0 {
		fmt.Println("No categories.")
		return
	}

	for _, c := range categories {
		fmt.Println(c)
	}
}
