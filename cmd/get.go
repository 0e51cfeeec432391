package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/internal/pkg/controler"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
	"github.com/receiptexporter/receiptexporter/internal/pkg/queue"
	"github.com/receiptexporter/receiptexporter/internal/pkg/source"
	"github.com/receiptexporter/receiptexporter/internal/pkg/utils"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Download the documents of the selected orders",
		Long: `Reads the order history, either from a saved history page or from the live
site through the browser session, and downloads the enabled documents of
every selected order.

The auto-fill company and department are only applied to orders whose
company or department field is still empty. Values already entered for an
order are kept.`,
		Example: `  receiptexporter get --history-file history.html --all
  receiptexporter get --order 1234567-01 --order 1234568-01 --category 1234567-01=消耗品`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("viper config is nil")
			}

			all, _ := cmd.Flags().GetBool("all")
			orders, _ := cmd.Flags().GetStringSlice("order")
			if !all && len(orders) == 0 {
				return fmt.Errorf("select orders with --order or --all")
			}

			if historyFile, _ := cmd.Flags().GetString("history-file"); historyFile != "" && !utils.FileExists(historyFile) {
				return fmt.Errorf("history file %s does not exist", historyFile)
			}

			return nil
		},
		RunE: runGet,
	}

	cmd.Flags().String("history-file", "", "Saved order history page to read instead of the live site.")
	cmd.Flags().String("history-url", "", "Order history page to load in the browser. (default is <base-url>/catalog/customer/history.aspx)")
	cmd.Flags().StringSlice("order", []string{}, "Order ID (or base order ID) to download. Can be repeated.")
	cmd.Flags().Bool("all", false, "Download every order of the history.")
	cmd.Flags().StringSlice("category", []string{}, "Category of an order, as ORDER_ID=LABEL. Can be repeated.")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	logger := log.NewFieldedLogger(&log.Fields{
		"component": "cmd.get",
	})

	historyFile, _ := cmd.Flags().GetString("history-file")
	historyURL, _ := cmd.Flags().GetString("history-url")
	all, _ := cmd.Flags().GetBool("all")
	ids, _ := cmd.Flags().GetStringSlice("order")
	rawCategories, _ := cmd.Flags().GetStringSlice("category")

	categories, err := parseCategories(rawCategories)
	if err != nil {
		return err
	}

	settings := cfg.Settings()
	needBrowser := settings.Receipt || cfg.FallbackCapture || historyFile == ""

	logger.Info("starting run", "run", cfg.RunID, "output", cfg.OutputDir, "version", utils.GetVersion().Version)

	u, detach := newUI()
	defer detach()

	p, err := controler.New(cfg, controler.Options{Browser: needBrowser, UI: u})
	if err != nil {
		return err
	}
	defer p.Close()

	if cp, err := p.Orchestrator.Status(); err == nil {
		return fmt.Errorf("a download queue is already running (%d/%d done), use resume to continue it", cp.Index, cp.Total)
	} else if !errors.Is(err, queue.ErrNoQueue) {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go controler.WatchSignals(ctx, cancel)
	config.WatchConfig()

	var history io.Reader
	if historyFile != "" {
		history, err = source.ReadHistoryFile(afero.NewOsFs(), historyFile)
	} else {
		if historyURL == "" {
			historyURL = cfg.HistoryURL()
		}
		history, err = source.FetchHistory(ctx, p.Browser, historyURL)
	}
	if err != nil {
		logger.Error("unable to read the order history", "err", err.Error())
		return err
	}

	orders, err := source.ParseHistory(history, source.Selection{All: all, IDs: slices.Compact(slices.Sorted(slices.Values(ids)))}, source.AutoFill{
		Company:    settings.AutoFillCompany,
		Department: settings.AutoFillDepartment,
	}, categories)
	if err != nil {
		return err
	}
	logger.Info("orders selected", "count", len(orders))

	checkCategories(ctx, p, orders, logger)

	if err := source.CheckStart(orders, settings, cfg.AllowMissingAddressee); err != nil {
		return err
	}

	err = p.Run(ctx, func(ctx context.Context) error {
		p.Orchestrator.SetSelection(orders)

		selected, err := p.SelectedOrders(ctx)
		if err != nil {
			return err
		}

		total, err := p.StartQueue(ctx, selected, settings)
		if err != nil {
			return err
		}
		logger.Info("download queue started", "total", total)

		status, err := p.Wait(ctx)
		if err != nil {
			return err
		}
		logger.Info("download queue finished", "success", status.Success, "fail", status.Fail)
		return nil
	})

	return finishRun(err, logger)
}

// parseCategories reads ORDER_ID=LABEL pairs.
func parseCategories(pairs []string) (map[string]string, error) {
	categories := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		id, label, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid category %q, expected ORDER_ID=LABEL", pair)
		}
		categories[strings.TrimSpace(id)] = strings.TrimSpace(label)
	}
	return categories, nil
}

// checkCategories warns about labels that are not in the category sheet.
func checkCategories(ctx context.Context, p *controler.Pipeline, orders []models.Order, logger *log.FieldedLogger) {
	if cfg.SpreadsheetURL == "" {
		return
	}

	known, err := p.Sheet.Categories(ctx)
	if err != nil {
		logger.Warn("unable to load the category sheet", "err", err.Error())
		return
	}

	for _, o := range orders {
		if o.Category != "" && !slices.Contains(known, o.Category) {
			logger.Warn("category is not listed in the category sheet", "order", o.OrderID, "category", o.Category)
		}
	}
}
