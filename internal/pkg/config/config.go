package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/receiptexporter/receiptexporter/internal/pkg/utils"
)

// Defaults shared by the flag definitions and InitConfig.
const (
	DefaultFilenamePattern = "{date}_{order_id}_{type}"
	DefaultBaseURL         = "https://akizukidenshi.com"
	DefaultHistoryPath     = "/catalog/customer/history.aspx"
	DefaultSheetName       = "シート1"
	DefaultColumnName      = "A"
	DefaultHeaderRow       = 2
	DefaultReceiptSource   = "url"
	DefaultConflictAction  = "overwrite"
)

// Delays is the table of fixed settle durations. The rendered pages do not
// signal readiness, so every wait is a plain sleep.
type Delays struct {
	HTMLSettle    time.Duration `mapstructure:"delay-html-settle"`
	ReceiptSettle time.Duration `mapstructure:"delay-receipt-settle"`
	SlowSettle    time.Duration `mapstructure:"delay-slow-settle"`
	PrintSettle   time.Duration `mapstructure:"delay-print-settle"`
	Teardown      time.Duration `mapstructure:"delay-teardown"`
	AfterSuccess  time.Duration `mapstructure:"delay-after-success"`
	AfterFailure  time.Duration `mapstructure:"delay-after-failure"`
}

// DefaultDelays returns the stock delay table.
func DefaultDelays() Delays {
	return Delays{
		HTMLSettle:    2500 * time.Millisecond,
		ReceiptSettle: 3500 * time.Millisecond,
		SlowSettle:    5000 * time.Millisecond,
		PrintSettle:   500 * time.Millisecond,
		Teardown:      300 * time.Millisecond,
		AfterSuccess:  1000 * time.Millisecond,
		AfterFailure:  500 * time.Millisecond,
	}
}

// Config holds all configuration for our program, parsed from various sources
// The `mapstructure` tags are used to map the fields to the viper configuration
type Config struct {
	RunID string

	StateDir  string `mapstructure:"state-dir"`
	OutputDir string `mapstructure:"output-dir"`
	BaseURL   string `mapstructure:"base-url"`
	UserAgent string `mapstructure:"user-agent"`
	Cookies   string `mapstructure:"cookies"`

	// Documents
	FilenamePattern       string `mapstructure:"filename-pattern"`
	DownloadReceipt       bool   `mapstructure:"download-receipt"`
	DownloadDeliverySlip  bool   `mapstructure:"download-delivery-slip"`
	DownloadInvoice       bool   `mapstructure:"download-invoice"`
	AutoFillCompany       string `mapstructure:"auto-fill-company"`
	AutoFillDepartment    string `mapstructure:"auto-fill-department"`
	AllowMissingAddressee bool   `mapstructure:"allow-missing-addressee"`
	ReceiptSource         string `mapstructure:"receipt-source"`
	FallbackCapture       bool   `mapstructure:"fallback-capture"`
	ConflictAction        string `mapstructure:"conflict-action"`
	NoPDFNormalize        bool   `mapstructure:"no-pdf-normalize"`
	MinSpaceRequired      uint64 `mapstructure:"min-space-required"`

	// Category sheet
	SpreadsheetURL string `mapstructure:"spreadsheet-url"`
	SheetName      string `mapstructure:"sheet-name"`
	ColumnName     string `mapstructure:"column-name"`
	HeaderRow      int    `mapstructure:"header-row"`

	// Headless browser
	HeadlessBrowserPath string `mapstructure:"headless-browser-path"`
	HeadlessUserDataDir string `mapstructure:"headless-user-data-dir"`
	HeadlessUserMode    bool   `mapstructure:"headless-user-mode"`
	HeadlessHeadful     bool   `mapstructure:"headless-headful"`
	HeadlessStealth     bool   `mapstructure:"headless-stealth"`
	HeadlessNoSandbox   bool   `mapstructure:"headless-no-sandbox"`

	Delays `mapstructure:",squash"`

	// Logging
	NoStdoutLogging  bool   `mapstructure:"no-stdout-log"`
	NoStderrLogging  bool   `mapstructure:"no-stderr-log"`
	NoFileLogging    bool   `mapstructure:"no-log-file"`
	NoColorLogging   bool   `mapstructure:"no-color-logging"`
	NoProgress       bool   `mapstructure:"no-progress"`
	StdoutLogLevel   string `mapstructure:"log-level"`
	LogFileLevel     string `mapstructure:"log-file-level"`
	LogFileOutputDir string `mapstructure:"log-file-output-dir"`
	LogFilePrefix    string `mapstructure:"log-file-prefix"`
	LogFileRotation  string `mapstructure:"log-file-rotation"`

	// Prometheus and metrics
	Prometheus       bool   `mapstructure:"prometheus"`
	PrometheusPrefix string `mapstructure:"prometheus-prefix"`
	MetricsFile      string `mapstructure:"metrics-file"`
}

// Settings is the user-facing subset of the configuration that the download
// queue reads when it is built. Listeners registered with Subscribe receive a
// fresh copy every time the configuration is reloaded.
type Settings struct {
	FilenamePattern    string
	Receipt            bool
	DeliverySlip       bool
	Invoice            bool
	AutoFillCompany    string
	AutoFillDepartment string
}

var (
	config *Config
	once   sync.Once
	mu     sync.RWMutex

	listenersMu sync.Mutex
	listeners   = map[int]func(Settings){}
	nextID      int
)

func setDefaults() {
	viper.SetDefault("filename-pattern", DefaultFilenamePattern)
	viper.SetDefault("download-receipt", true)
	viper.SetDefault("download-delivery-slip", true)
	viper.SetDefault("download-invoice", true)
	viper.SetDefault("base-url", DefaultBaseURL)
	viper.SetDefault("sheet-name", DefaultSheetName)
	viper.SetDefault("column-name", DefaultColumnName)
	viper.SetDefault("header-row", DefaultHeaderRow)
	viper.SetDefault("receipt-source", DefaultReceiptSource)
	viper.SetDefault("conflict-action", DefaultConflictAction)
	viper.SetDefault("min-space-required", 100)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-file-level", "info")
	viper.SetDefault("log-file-prefix", "receiptexporter")
	viper.SetDefault("prometheus-prefix", "receiptexporter_")

	d := DefaultDelays()
	viper.SetDefault("delay-html-settle", d.HTMLSettle)
	viper.SetDefault("delay-receipt-settle", d.ReceiptSettle)
	viper.SetDefault("delay-slow-settle", d.SlowSettle)
	viper.SetDefault("delay-print-settle", d.PrintSettle)
	viper.SetDefault("delay-teardown", d.Teardown)
	viper.SetDefault("delay-after-success", d.AfterSuccess)
	viper.SetDefault("delay-after-failure", d.AfterFailure)
}

// InitConfig initializes the configuration
// Flags -> Env -> Config file
// Latest has precedence over the rest
func InitConfig() error {
	var err error
	once.Do(func() {
		setDefaults()

		// Check if a config file is provided via flag
		if configFile := viper.GetString("config-file"); configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				err = homeErr
				return
			}

			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName("receiptexporter")
		}

		viper.SetEnvPrefix("RECEIPTEXPORTER")
		replacer := strings.NewReplacer("-", "_", ".", "_")
		viper.SetEnvKeyReplacer(replacer)
		viper.AutomaticEnv()

		if readErr := viper.ReadInConfig(); readErr == nil {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}

		var c *Config
		c, err = load()
		if err != nil {
			return
		}

		mu.Lock()
		config = c
		mu.Unlock()
	})
	return err
}

func load() (*Config, error) {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.HeaderRow < 1 {
		return nil, fmt.Errorf("%w: header-row must be >= 1, got %d", ErrInvalidConfig, c.HeaderRow)
	}

	switch c.ReceiptSource {
	case "url", "html":
	default:
		return nil, fmt.Errorf("%w: receipt-source must be url or html, got %q", ErrInvalidConfig, c.ReceiptSource)
	}

	switch c.ConflictAction {
	case "overwrite", "uniquify":
	default:
		return nil, fmt.Errorf("%w: conflict-action must be overwrite or uniquify, got %q", ErrInvalidConfig, c.ConflictAction)
	}

	return c, nil
}

// BindFlags binds the flags to the viper configuration
// This is needed because viper doesn't support same flag name accross multiple commands
// Details here: https://github.com/spf13/viper/issues/375#issuecomment-794668149
func BindFlags(flagSet *pflag.FlagSet) {
	flagSet.VisitAll(func(flag *pflag.Flag) {
		viper.BindPFlag(flag.Name, flag)
	})
}

// Get returns the config struct
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return config
}

// Settings extracts the queue-facing settings from the configuration.
func (c *Config) Settings() Settings {
	return Settings{
		FilenamePattern:    c.FilenamePattern,
		Receipt:            c.DownloadReceipt,
		DeliverySlip:       c.DownloadDeliverySlip,
		Invoice:            c.DownloadInvoice,
		AutoFillCompany:    c.AutoFillCompany,
		AutoFillDepartment: c.AutoFillDepartment,
	}
}

// AnyDocument reports whether at least one document type is enabled.
func (s Settings) AnyDocument() bool {
	return s.Receipt || s.DeliverySlip || s.Invoice
}

// HistoryURL is the order history page on the configured origin.
func (c *Config) HistoryURL() string {
	return strings.TrimRight(c.BaseURL, "/") + DefaultHistoryPath
}

// GenerateRunConfig derives the run-specific fields once the configuration
// has been loaded.
func GenerateRunConfig() error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		return ErrNotInitialized
	}

	UUID, err := uuid.NewUUID()
	if err != nil {
		slog.Error("config.GenerateRunConfig():uuid.NewUUID()", "error", err)
		return err
	}
	config.RunID = UUID.String()

	if config.StateDir == "" || config.OutputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		if config.StateDir == "" {
			config.StateDir = filepath.Join(home, ".receiptexporter")
		}

		if config.OutputDir == "" {
			config.OutputDir = filepath.Join(home, "Downloads")
		}
	}

	if config.LogFileOutputDir == "" {
		config.LogFileOutputDir = filepath.Join(config.StateDir, "logs")
	}

	if config.HeadlessUserDataDir == "" {
		config.HeadlessUserDataDir = filepath.Join(config.StateDir, "browser")
	}

	if config.UserAgent == "" {
		version := utils.GetVersion()

		// If Version is a commit hash, we only take the first 7 characters
		if len(version.Version) >= 40 {
			version.Version = version.Version[:7]
		}

		config.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36 receiptexporter/" + version.Version
		slog.Info("User-Agent set to", "user-agent", config.UserAgent)
	}

	return nil
}

// Subscribe registers fn to be called with the new settings after every
// reload. The returned function removes the listener.
func Subscribe(fn func(Settings)) (unsubscribe func()) {
	listenersMu.Lock()
	defer listenersMu.Unlock()

	id := nextID
	nextID++
	listeners[id] = fn

	return func() {
		listenersMu.Lock()
		defer listenersMu.Unlock()
		delete(listeners, id)
	}
}

// Reload re-reads the configuration sources and notifies subscribers.
// Run-derived fields are carried over from the previous configuration.
func Reload() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	c, err := load()
	if err != nil {
		return err
	}

	mu.Lock()
	if config != nil {
		c.RunID = config.RunID
		c.StateDir = config.StateDir
		c.OutputDir = config.OutputDir
		c.UserAgent = config.UserAgent
		c.LogFileOutputDir = config.LogFileOutputDir
		c.HeadlessUserDataDir = config.HeadlessUserDataDir
	}
	config = c
	mu.Unlock()

	notify(c.Settings())

	return nil
}

// WatchConfig reloads the configuration whenever the config file changes.
func WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config file changed", "file", e.Name)
		if err := Reload(); err != nil {
			slog.Error("unable to reload config", "error", err)
		}
	})
	viper.WatchConfig()
}

func notify(s Settings) {
	listenersMu.Lock()
	fns := make([]func(Settings), 0, len(listeners))
	for _, fn := range listeners {
		fns = append(fns, fn)
	}
	listenersMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
