// Package source reads orders from the vendor's order history page and the
// category labels from the user's spreadsheet.
package source

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/afero"
	"golang.org/x/net/html/charset"

	"github.com/receiptexporter/receiptexporter/pkg/models"
)

const productNameLimit = 50

var (
	dateRegex  = regexp.MustCompile(`(\d{4}/\d{1,2}/\d{1,2})`)
	priceRegex = regexp.MustCompile(`￥([\d,]+)`)
)

// Selection picks orders by order id or base order id. An empty selection
// with All unset selects nothing.
type Selection struct {
	All bool
	IDs []string
}

// Match reports whether o is selected.
func (s Selection) Match(o *models.Order) bool {
	if s.All {
		return true
	}
	return slices.Contains(s.IDs, o.OrderID) || slices.Contains(s.IDs, o.BaseOrderID)
}

// AutoFill holds the addressee values applied to selected orders whose
// field is empty.
type AutoFill struct {
	Company    string
	Department string
}

// PageLoader returns the rendered markup of a page in the logged-in session.
type PageLoader interface {
	LoadHTML(ctx context.Context, url string) (string, error)
}

// ReadHistoryFile opens a saved history page, decoding it to UTF-8.
func ReadHistoryFile(fs afero.Fs, path string) (io.Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return Decode(data, "")
}

// FetchHistory loads the live history page through loader.
func FetchHistory(ctx context.Context, loader PageLoader, historyURL string) (io.Reader, error) {
	html, err := loader.LoadHTML(ctx, historyURL)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(html), nil
}

// Decode converts data to UTF-8 using contentType, a <meta> charset or a
// byte order mark, whichever is found first.
func Decode(data []byte, contentType string) (io.Reader, error) {
	return charset.NewReader(bytes.NewReader(data), contentType)
}

// ParseHistory extracts the selected orders from an order history page.
// Cancelled orders are skipped. categories maps an order id or base order id
// to its label.
func ParseHistory(r io.Reader, sel Selection, fill AutoFill, categories map[string]string) ([]models.Order, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	orders := []models.Order{}
	doc.Find(".block-purchase-history--frame").Each(func(_ int, frame *goquery.Selection) {
		if frame.Find(".block-purchase-history--order-cancel-data").Length() > 0 {
			return
		}

		order := extractOrder(frame)
		if !sel.Match(&order) {
			return
		}

		if order.AddrComp == "" {
			order.AddrComp = fill.Company
		}
		if order.AddrDept == "" {
			order.AddrDept = fill.Department
		}

		if label, ok := categories[order.OrderID]; ok {
			order.Category = label
		} else if label, ok := categories[order.BaseOrderID]; ok {
			order.Category = label
		}

		orders = append(orders, order)
	})

	return orders, nil
}

func extractOrder(frame *goquery.Selection) models.Order {
	order := models.Order{}

	if m := dateRegex.FindStringSubmatch(frame.Find(".block-purchase-history--order_dt").First().Text()); m != nil {
		order.Date = m[1]
	}

	if m := priceRegex.FindStringSubmatch(frame.Find(".block-purchase-history--total").First().Text()); m != nil {
		order.Price = "￥" + m[1]
	}

	order.BaseOrderID = inputValue(frame, "base_order_id")
	order.OrderID = strings.TrimSpace(frame.Find(`.block-purchase-history--order-detail a[href*="historydetail"]`).First().Text())
	order.ProductName = truncate(strings.TrimSpace(frame.Find(".block-purchase-history--goods-name").First().Text()), productNameLimit)

	form := frame.Find(`form[name="frmAddress"]`).First()
	if form.Length() > 0 {
		order.AddrComp = inputValue(form, "addr_comp")
		order.AddrDept = inputValue(form, "addr_dept")
		order.AddrName = inputValue(form, "addr_name")
		order.AddrCompOn = inputValue(form, "addr_comp_on")
		order.AddrDeptOn = inputValue(form, "addr_dept_on")
		order.AddrNameOn = inputValue(form, "addr_name_on")
		order.CSRFToken = inputValue(form, "crsirefo_hidden")
	}

	return order
}

func inputValue(s *goquery.Selection, name string) string {
	value, _ := s.Find(`input[name="` + name + `"]`).First().Attr("value")
	return value
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
