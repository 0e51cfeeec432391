package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "receiptexporter",
	Short: "Export akizukidenshi order documents as PDF files",
	Long: `receiptexporter downloads the receipts, delivery slips and invoices of your
akizukidenshi.com orders and saves them as consistently named PDF files.

A download queue is persisted after every step: an interrupted run can be
continued with the resume command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize config here, after cobra has parsed command line flags
		if err := config.InitConfig(); err != nil {
			fmt.Printf("error initializing config: %s\n", err)
			os.Exit(1)
		}

		if err := config.GenerateRunConfig(); err != nil {
			fmt.Printf("error generating run config: %s\n", err)
			os.Exit(1)
		}

		if err := log.Start(); err != nil {
			fmt.Printf("error starting logger: %s\n", err)
			os.Exit(1)
		}

		cfg = config.Get()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Run the root command
func Run() error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Define flags and configuration settings
	rootCmd.PersistentFlags().String("config-file", "", "config file (default is $HOME/receiptexporter.yaml)")
	rootCmd.PersistentFlags().String("state-dir", "", "Directory holding the persisted queue, the category cache and the browser profile. (default is $HOME/.receiptexporter)")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory the documents are saved under. (default is $HOME/Downloads)")
	rootCmd.PersistentFlags().String("base-url", config.DefaultBaseURL, "Origin of the store.")
	rootCmd.PersistentFlags().String("user-agent", "", "User agent to use when requesting documents.")
	rootCmd.PersistentFlags().String("cookies", "", "Session cookies to send, as a Cookie header value (name=value; name2=value2).")
	rootCmd.PersistentFlags().Uint64("min-space-required", 100, "Minimum free space required in MB in the output directory.")

	logFlags(rootCmd)
	documentFlags(rootCmd)
	sheetFlags(rootCmd)
	headlessFlags(rootCmd)
	delayFlags(rootCmd)

	// Bind flags to viper
	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd.Execute()
}

func logFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-level", "info", "stdout log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-file-level", "info", "log file level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("no-stdout-log", false, "Disable stdout logging.")
	cmd.PersistentFlags().Bool("no-stderr-log", false, "Disable stderr logging.")
	cmd.PersistentFlags().Bool("no-log-file", false, "Disable log file output.")
	cmd.PersistentFlags().Bool("no-color-logging", false, "Disable colors in stdout logs.")
	cmd.PersistentFlags().String("log-file-output-dir", "", "Directory to write the log files to. (default is <state-dir>/logs)")
	cmd.PersistentFlags().String("log-file-prefix", "receiptexporter", "Prefix of the log file names.")
	cmd.PersistentFlags().String("log-file-rotation", "", "Log file rotation period (e.g. 1h, 24h). Empty disables rotation.")
	cmd.PersistentFlags().Bool("no-progress", false, "Disable the live progress display.")
	cmd.PersistentFlags().Bool("prometheus", false, "Write the run metrics in Prometheus textfile format. (to --metrics-file or <state-dir>/metrics.prom)")
	cmd.PersistentFlags().String("prometheus-prefix", "receiptexporter_", "String used as a prefix for the exported Prometheus metrics.")
	cmd.PersistentFlags().String("metrics-file", "", "Write the run metrics to this file at the end of the run.")
}

func documentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("filename-pattern", config.DefaultFilenamePattern, "Pattern of the saved file names. Tokens: {date} {order_id} {type} {category}")
	cmd.PersistentFlags().Bool("download-receipt", true, "Download the receipt (領収書) of each order.")
	cmd.PersistentFlags().Bool("download-delivery-slip", true, "Download the delivery slip (納品書) of each order.")
	cmd.PersistentFlags().Bool("download-invoice", true, "Download the invoice (請求書) of each order.")
	cmd.PersistentFlags().String("auto-fill-company", "", "Company name filled into orders that have none.")
	cmd.PersistentFlags().String("auto-fill-department", "", "Department name filled into orders that have none.")
	cmd.PersistentFlags().Bool("allow-missing-addressee", false, "Start even when selected orders have no addressee.")
	cmd.PersistentFlags().String("receipt-source", config.DefaultReceiptSource, "How receipts are rendered: url (navigate to the page) or html (fetch then render).")
	cmd.PersistentFlags().Bool("fallback-capture", false, "Render the page in the browser when a direct download does not return a PDF.")
	cmd.PersistentFlags().String("conflict-action", config.DefaultConflictAction, "What to do when the file already exists: overwrite or uniquify.")
	cmd.PersistentFlags().Bool("no-pdf-normalize", false, "Save the PDF bytes as received, without rewriting them.")
}

func sheetFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("spreadsheet-url", "", "URL of a public Google spreadsheet listing the categories.")
	cmd.PersistentFlags().String("sheet-name", config.DefaultSheetName, "Name of the sheet holding the categories.")
	cmd.PersistentFlags().String("column-name", config.DefaultColumnName, "Column letter holding the categories.")
	cmd.PersistentFlags().Int("header-row", config.DefaultHeaderRow, "First data row of the category column (1-based).")
}

func headlessFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("headless-browser-path", "", "Path of the Chromium binary. Downloaded when empty.")
	cmd.PersistentFlags().String("headless-user-data-dir", "", "Browser profile directory. (default is <state-dir>/browser)")
	cmd.PersistentFlags().Bool("headless-user-mode", false, "Attach to the browser of the current user instead of launching one.")
	cmd.PersistentFlags().Bool("headless-headful", false, "Show the browser window.")
	cmd.PersistentFlags().Bool("headless-stealth", false, "Hide the automation fingerprints of the browser.")
	cmd.PersistentFlags().Bool("headless-no-sandbox", false, "Launch the browser without its sandbox.")
}

func delayFlags(cmd *cobra.Command) {
	d := config.DefaultDelays()
	cmd.PersistentFlags().Duration("delay-html-settle", d.HTMLSettle, "Wait after loading a fetched page into the browser.")
	cmd.PersistentFlags().Duration("delay-receipt-settle", d.ReceiptSettle, "Wait after navigating to a receipt page.")
	cmd.PersistentFlags().Duration("delay-slow-settle", d.SlowSettle, "Wait after navigating to a page for the fallback capture.")
	cmd.PersistentFlags().Duration("delay-print-settle", d.PrintSettle, "Wait between print media emulation and printing.")
	cmd.PersistentFlags().Duration("delay-teardown", d.Teardown, "Wait before closing a rendered page.")
	cmd.PersistentFlags().Duration("delay-after-success", d.AfterSuccess, "Wait after a completed item before the next one.")
	cmd.PersistentFlags().Duration("delay-after-failure", d.AfterFailure, "Wait after an item that could not be dispatched.")
}
