package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/philippgille/gokv/syncmap"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

const historyPage = `<html><head><meta charset="utf-8"></head><body>
<div class="block-purchase-history--frame">
  <table><tbody><tr><td>
    <div class="block-purchase-history--order_dt">注文日 2024/3/5 10:12</div>
    <div class="block-purchase-history--order-detail"><a href="/catalog/customer/historydetail.aspx?order_id=12345-01"> 12345-01 </a></div>
    <div class="block-purchase-history--total">合計 ￥1,234</div>
    <div class="block-purchase-history--goods-name">ＡＶＲマイコン　ＡＴｍｅｇａ３２８Ｐ－ＰＵ　とても長い商品名がここに続いてさらに続いてもっと続きますね。</div>
    <input type="hidden" name="base_order_id" value="12345">
    <form name="frmAddress">
      <input name="addr_comp" value="">
      <input name="addr_dept" value="開発部">
      <input name="addr_name" value="山田">
      <input type="hidden" name="addr_comp_on" value="">
      <input type="hidden" name="addr_dept_on" value="checked">
      <input type="hidden" name="addr_name_on" value="">
      <input type="hidden" name="crsirefo_hidden" value="tok">
    </form>
  </td></tr></tbody></table>
</div>
<div class="block-purchase-history--frame">
  <div class="block-purchase-history--order-cancel-data">キャンセル</div>
  <div class="block-purchase-history--order-detail"><a href="historydetail.aspx?order_id=22222-01">22222-01</a></div>
  <input type="hidden" name="base_order_id" value="22222">
</div>
<div class="block-purchase-history--frame">
  <div class="block-purchase-history--order_dt">2023/12/24</div>
  <div class="block-purchase-history--order-detail"><a href="historydetail.aspx?order_id=33333-02">33333-02</a></div>
  <div class="block-purchase-history--total">￥500</div>
  <div class="block-purchase-history--goods-name">抵抗</div>
  <input type="hidden" name="base_order_id" value="33333">
</div>
</body></html>`

func TestParseHistoryExtractsFields(t *testing.T) {
	orders, err := ParseHistory(strings.NewReader(historyPage), Selection{All: true}, AutoFill{}, nil)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "2024/3/5", first.Date)
	assert.Equal(t, "￥1,234", first.Price)
	assert.Equal(t, "12345-01", first.OrderID)
	assert.Equal(t, "12345", first.BaseOrderID)
	assert.Equal(t, "", first.AddrComp)
	assert.Equal(t, "開発部", first.AddrDept)
	assert.Equal(t, "山田", first.AddrName)
	assert.Equal(t, "checked", first.AddrDeptOn)
	assert.Equal(t, "tok", first.CSRFToken)
	assert.True(t, strings.HasSuffix(first.ProductName, "..."))
	assert.Equal(t, 53, len([]rune(first.ProductName)))

	second := orders[1]
	assert.Equal(t, "33333-02", second.OrderID)
	assert.Equal(t, "2023/12/24", second.Date)
	assert.Equal(t, "抵抗", second.ProductName)
	assert.False(t, second.HasAddressee())
}

func TestParseHistorySelectionAutoFillAndCategories(t *testing.T) {
	orders, err := ParseHistory(strings.NewReader(historyPage),
		Selection{IDs: []string{"12345", "22222-01"}},
		AutoFill{Company: "ACME", Department: "総務"},
		map[string]string{"12345-01": "研究費"})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	assert.Equal(t, "ACME", orders[0].AddrComp)
	assert.Equal(t, "開発部", orders[0].AddrDept)
	assert.Equal(t, "研究費", orders[0].Category)

	orders, err = ParseHistory(strings.NewReader(historyPage), Selection{}, AutoFill{}, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestReadHistoryFileDecodesCharset(t *testing.T) {
	fs := afero.NewMemMapFs()
	page := []byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=Shift_JIS"></head><body>
<div class="block-purchase-history--frame">
<div class="block-purchase-history--order-detail"><a href="historydetail.aspx">1-01</a></div>
<div class="block-purchase-history--goods-name">`)
	page = append(page, 0x97, 0xCC, 0x8E, 0xFB, 0x8F, 0x91)
	page = append(page, []byte(`</div></div></body></html>`)...)
	require.NoError(t, afero.WriteFile(fs, "/history.html", page, 0644))

	r, err := ReadHistoryFile(fs, "/history.html")
	require.NoError(t, err)

	orders, err := ParseHistory(r, Selection{All: true}, AutoFill{}, nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "領収書", orders[0].ProductName)
}

type fakeLoader struct {
	url string
	err error
}

func (l *fakeLoader) LoadHTML(_ context.Context, target string) (string, error) {
	l.url = target
	return historyPage, l.err
}

func TestFetchHistory(t *testing.T) {
	loader := &fakeLoader{}
	r, err := FetchHistory(context.Background(), loader, "https://shop.example/catalog/customer/history.aspx")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/catalog/customer/history.aspx", loader.url)

	orders, err := ParseHistory(r, Selection{All: true}, AutoFill{}, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = FetchHistory(context.Background(), &fakeLoader{err: errors.New("boom")}, "x")
	assert.Error(t, err)
}

func TestSpreadsheetHelpers(t *testing.T) {
	id, err := SpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC_d-9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC_d-9", id)

	_, err = SpreadsheetID("https://example.com/nothing")
	assert.ErrorIs(t, err, ErrInvalidSpreadsheetURL)

	assert.Equal(t,
		"https://docs.google.com/spreadsheets/d/X/gviz/tq?tqx=out:csv&sheet=%E3%82%B7%E3%83%BC%E3%83%881",
		CSVURL(DefaultSheetHost, "X", "シート1"))

	assert.Equal(t, 0, ColumnIndex("A"))
	assert.Equal(t, 2, ColumnIndex("c"))
	assert.Equal(t, 26, ColumnIndex("AA"))

	rows := [][]string{{"title"}, {"label", "x"}, {" 研究費 ", "y"}, {"", "z"}, {"消耗品"}}
	assert.Equal(t, []string{"研究費", "消耗品"}, ExtractColumn(rows, 0, 3))
	assert.Equal(t, []string{"label", "研究費", "消耗品"}, ExtractColumn(rows, 0, 2))
	assert.Equal(t, []string{"x", "y", "z"}, ExtractColumn(rows, 1, 1))
}

func TestSheetCachesForFiveMinutes(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/spreadsheets/d/SHEET/gviz/tq", r.URL.Path)
		assert.Equal(t, "Sheet2", r.URL.Query().Get("sheet"))
		fmt.Fprint(w, "\"Categories\",\"other\"\n\"Parts, misc\",\"1\"\n\"Tools\",\"2\"\n")
	}))
	defer server.Close()

	s := NewSheet(SheetConfig{
		URL:       "https://docs.google.com/spreadsheets/d/SHEET/edit",
		SheetName: "Sheet2",
		Column:    "A",
		HeaderRow: 2,
	}, server.Client(), syncmap.NewStore(syncmap.DefaultOptions))
	s.host = server.URL

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	values, err := s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Parts, misc", "Tools"}, values)

	now = now.Add(4 * time.Minute)
	_, err = s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(2 * time.Minute)
	_, err = s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSheetErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewSheet(SheetConfig{}, nil, nil).Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoSpreadsheet)

	s := NewSheet(SheetConfig{URL: "https://docs.google.com/spreadsheets/d/S/edit", Column: "A", HeaderRow: 1}, server.Client(), nil)
	s.host = server.URL
	_, err = s.Categories(context.Background())
	assert.ErrorIs(t, err, ErrSpreadsheetUnavailable)
}

func TestCheckStart(t *testing.T) {
	all := config.Settings{Receipt: true}
	withAddr := models.Order{OrderID: "1-01", AddrName: "山田"}
	flagOnly := models.Order{OrderID: "2-01", AddrNameOn: "checked"}

	assert.ErrorIs(t, CheckStart([]models.Order{withAddr}, config.Settings{}, false), ErrNoDocumentType)
	assert.ErrorIs(t, CheckStart(nil, all, false), ErrNoOrderSelected)
	assert.NoError(t, CheckStart([]models.Order{withAddr}, all, false))

	err := CheckStart([]models.Order{withAddr, flagOnly}, all, false)
	assert.ErrorIs(t, err, ErrMissingAddressee)
	assert.Contains(t, err.Error(), "2-01")

	assert.NoError(t, CheckStart([]models.Order{flagOnly}, all, true))
}
