// Package filename turns an order and a user pattern into a safe PDF filename.
package filename

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/receiptexporter/receiptexporter/pkg/models"
)

const (
	// DefaultPattern is used when no pattern is configured.
	DefaultPattern = "{date}_{order_id}_{type}"

	productMaxRunes = 30
	extension       = ".pdf"
)

var (
	datePattern  = regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`)
	nonDigits    = regexp.MustCompile(`\D`)
	unsafeChars  = regexp.MustCompile(`[<>:"/\\|?*\r\n]`)
	repeatedDots = regexp.MustCompile(`\.+`)
)

// Tokens lists the placeholders recognised in a pattern.
var Tokens = []string{"{date}", "{order_id}", "{base_order_id}", "{type}", "{price}", "{product}", "{dropdown}"}

// Format builds the filename for one document. It never fails and always
// returns a name ending in .pdf.
func Format(pattern string, order *models.Order, docLabel string) string {
	if order == nil {
		order = &models.Order{}
	}

	orderID := order.OrderID
	if orderID == "" {
		orderID = order.BaseOrderID
	}
	if orderID == "" {
		orderID = "unknown"
	}

	baseOrderID := order.GetBaseOrderID()
	if baseOrderID == "" {
		baseOrderID = "unknown"
	}

	price := nonDigits.ReplaceAllString(order.Price, "")
	if price == "" {
		price = "0"
	}

	// Single pass: substituted values are never rescanned for tokens.
	replacer := strings.NewReplacer(
		"{date}", NormalizeDate(order.Date),
		"{order_id}", orderID,
		"{base_order_id}", baseOrderID,
		"{type}", docLabel,
		"{price}", price,
		"{product}", Sanitize(truncate(order.ProductName, productMaxRunes)),
		"{dropdown}", Sanitize(order.Category),
	)

	name := replacer.Replace(pattern)
	if !strings.HasSuffix(strings.ToLower(name), extension) {
		name += extension
	}

	name = Sanitize(name)
	name = repeatedDots.ReplaceAllString(name, ".")

	return strings.TrimSpace(name)
}

// NormalizeDate converts a vendor date such as 2024/3/5 into 2024-03-05.
// Input without a recognisable date is returned trimmed.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}

	m := datePattern.FindStringSubmatch(raw)
	if m == nil {
		return strings.TrimSpace(raw)
	}

	return fmt.Sprintf("%s-%s-%s", m[1], pad(m[2]), pad(m[3]))
}

// Sanitize replaces characters that are not allowed in filenames with '_'.
func Sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

func pad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
