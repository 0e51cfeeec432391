package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/philippgille/gokv"

	"github.com/receiptexporter/receiptexporter/internal/pkg/log"
)

// Store keys of the category cache.
const (
	KeySpreadsheetData = "spreadsheetData"
	KeySpreadsheetTime = "spreadsheetDataTime"
)

const (
	DefaultSheetHost = "https://docs.google.com"
	DefaultCacheTTL  = 5 * time.Minute
)

var spreadsheetIDRegex = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// SheetConfig locates the category column in a published spreadsheet.
type SheetConfig struct {
	URL       string
	SheetName string
	Column    string
	HeaderRow int
}

// Sheet imports category labels from a spreadsheet CSV export and caches them.
type Sheet struct {
	cfg    SheetConfig
	client *http.Client
	store  gokv.Store
	host   string
	ttl    time.Duration
	now    func() time.Time
	logger *log.FieldedLogger
}

// NewSheet creates a Sheet. store may be nil to disable the cache.
func NewSheet(cfg SheetConfig, client *http.Client, store gokv.Store) *Sheet {
	if client == nil {
		client = http.DefaultClient
	}

	return &Sheet{
		cfg:    cfg,
		client: client,
		store:  store,
		host:   DefaultSheetHost,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		logger: log.NewFieldedLogger(&log.Fields{
			"component": "source.sheet",
		}),
	}
}

// SpreadsheetID extracts the document id from a spreadsheet URL.
func SpreadsheetID(sheetURL string) (string, error) {
	m := spreadsheetIDRegex.FindStringSubmatch(sheetURL)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSpreadsheetURL, sheetURL)
	}
	return m[1], nil
}

// CSVURL is the CSV export of sheet in the spreadsheet id.
func CSVURL(host, id, sheet string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		strings.TrimRight(host, "/"), id, url.QueryEscape(sheet))
}

// ColumnIndex converts a column letter (A, B, ..., AA) to a zero-based index.
func ColumnIndex(letter string) int {
	index := 0
	for _, r := range strings.ToUpper(strings.TrimSpace(letter)) {
		index = index*26 + int(r-'A'+1)
	}
	return index - 1
}

// ExtractColumn returns the non-empty trimmed values of column, starting at
// the one-based headerRow.
func ExtractColumn(rows [][]string, column, headerRow int) []string {
	values := []string{}
	if headerRow < 1 {
		headerRow = 1
	}

	for i := headerRow - 1; i < len(rows); i++ {
		if column < 0 || column >= len(rows[i]) {
			continue
		}
		if v := strings.TrimSpace(rows[i][column]); v != "" {
			values = append(values, v)
		}
	}

	return values
}

// Categories returns the cached labels when they are fresh, otherwise
// downloads them.
func (s *Sheet) Categories(ctx context.Context) ([]string, error) {
	if values, ok := s.cached(); ok {
		return values, nil
	}
	return s.Refresh(ctx)
}

// Refresh downloads the labels and updates the cache.
func (s *Sheet) Refresh(ctx context.Context) ([]string, error) {
	if s.cfg.URL == "" {
		return nil, ErrNoSpreadsheet
	}

	id, err := SpreadsheetID(s.cfg.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CSVURL(s.host, id, s.cfg.SheetName), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrSpreadsheetUnavailable, resp.StatusCode)
	}

	rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, err
	}

	values := ExtractColumn(rows, ColumnIndex(s.cfg.Column), s.cfg.HeaderRow)

	if s.store != nil {
		if err := s.store.Set(KeySpreadsheetData, values); err != nil {
			s.logger.Warn("unable to cache categories", "err", err)
		} else if err := s.store.Set(KeySpreadsheetTime, s.now().UnixMilli()); err != nil {
			s.logger.Warn("unable to cache categories", "err", err)
		}
	}

	s.logger.Info("categories imported", "count", len(values))

	return values, nil
}

func (s *Sheet) cached() ([]string, bool) {
	if s.store == nil {
		return nil, false
	}

	var at int64
	found, err := s.store.Get(KeySpreadsheetTime, &at)
	if err != nil || !found {
		return nil, false
	}
	if s.now().Sub(time.UnixMilli(at)) >= s.ttl {
		return nil, false
	}

	var values []string
	found, err = s.store.Get(KeySpreadsheetData, &values)
	if err != nil || !found {
		return nil, false
	}

	return values, true
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}
