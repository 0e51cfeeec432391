package filename

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/receiptexporter/receiptexporter/pkg/models"
)

func TestFormatDefaultPattern(t *testing.T) {
	order := &models.Order{Date: "2024/3/5", OrderID: "12345-01"}

	got := Format("{date}_{order_id}_{type}", order, "領収書")
	assert.Equal(t, "2024-03-05_12345-01_領収書.pdf", got)
}

func TestFormatTokens(t *testing.T) {
	order := &models.Order{
		Date:        "注文日 2023/12/1",
		Price:       "￥1,234",
		OrderID:     "98765-02",
		ProductName: "抵抗器 1/4W 10kΩ: 100本入り <お得> パック「大容量」セット品",
		Category:    "部品/消耗品",
	}

	tests := []struct {
		pattern string
		want    string
	}{
		{"{date}", "2023-12-01.pdf"},
		{"{price}", "1234.pdf"},
		{"{base_order_id}", "98765.pdf"},
		{"{order_id}-{base_order_id}", "98765-02-98765.pdf"},
		{"{dropdown}", "部品_消耗品.pdf"},
		{"{unknown}_{type}", "{unknown}_請求書.pdf"},
		{"{type}{type}", "請求書請求書.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.pattern, order, "請求書"))
		})
	}
}

func TestFormatProductTruncatedAndSanitized(t *testing.T) {
	order := &models.Order{ProductName: strings.Repeat("あ", 28) + "a/b:c"}

	got := Format("{product}", order, "")
	assert.Equal(t, strings.Repeat("あ", 28)+"a_.pdf", got)
}

func TestFormatFallbacks(t *testing.T) {
	got := Format("{order_id}_{base_order_id}_{price}", &models.Order{}, "")
	assert.Equal(t, "unknown_unknown_0.pdf", got)

	got = Format("{order_id}", &models.Order{BaseOrderID: "555"}, "")
	assert.Equal(t, "555.pdf", got)

	got = Format("{date}", &models.Order{Date: "  不明  "}, "")
	assert.Equal(t, "不明.pdf", got)
}

func TestFormatNoRecursiveExpansion(t *testing.T) {
	order := &models.Order{Category: "{order_id}", OrderID: "1-01"}

	assert.Equal(t, "{order_id}_1-01.pdf", Format("{dropdown}_{order_id}", order, ""))
}

func TestFormatExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Format("", nil, ""))
	assert.Equal(t, "name.PDF", Format("name.PDF", nil, ""))
	assert.Equal(t, "name.pdf", Format("name...pdf", nil, ""))
	assert.Equal(t, "a.b.pdf", Format("a..b", nil, ""))
}

func TestFormatAlwaysSafe(t *testing.T) {
	patterns := []string{
		"",
		" ",
		"{date}",
		"a<b>c:d\"e/f\\g|h?i*j",
		"line\r\nbreak",
		"trailing.pdf\n",
		"{product}{dropdown}..",
		"x.pdf ",
	}
	orders := []*models.Order{
		nil,
		{},
		{Date: "2024/1/2", OrderID: "1-01", ProductName: "a\nb", Category: "c\r?d"},
		{Price: "<>", BaseOrderID: "*|*"},
	}

	for _, p := range patterns {
		for _, o := range orders {
			got := Format(p, o, "納品書")
			assert.True(t, strings.HasSuffix(strings.ToLower(got), ".pdf"), "pattern %q gave %q", p, got)
			assert.NotContains(t, got, "..")
			assert.False(t, strings.ContainsAny(got, "<>:\"/\\|?*\r\n"), "pattern %q gave %q", p, got)

			assert.Equal(t, got, Format(p, o, "納品書"), "format must be deterministic")
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-10-09", NormalizeDate("2024/10/9"))
	assert.Equal(t, "2024-01-31", NormalizeDate("2024/01/31"))
	assert.Equal(t, "", NormalizeDate(""))
	assert.Equal(t, "2024-10", NormalizeDate(" 2024-10 "))
}

func TestFormatBaseOrderIDFollowsOrder(t *testing.T) {
	for _, order := range []*models.Order{
		{OrderID: "98765-123"},
		{OrderID: "98765-02", BaseOrderID: "11111"},
		{OrderID: "98765-02"},
	} {
		assert.Equal(t, order.GetBaseOrderID()+".pdf", Format("{base_order_id}", order, ""))
	}
}
